/*
 * MIT License
 *
 * Copyright (c) 2024 EASL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package config

import (
	"chain_orchestrator/pkg/utils"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CHAIN"

type OrchestratorConfig struct {
	Verbosity        string                 `mapstructure:"verbosity"`
	RunDirectory     string                 `mapstructure:"runDirectory"`
	ConfigFilePrefix string                 `mapstructure:"configFilePrefix"`
	ConfigFileSuffix string                 `mapstructure:"configFileSuffix"`
	Experiment       ExperimentConfig       `mapstructure:"experiment"`
	Node             NodeNamingConfig       `mapstructure:"node"`
	AddressSpace     AddressSpaceConfig     `mapstructure:"addressSpace"`
	Worker           WorkerConfig           `mapstructure:"worker"`
	TrafficGenerator TrafficGeneratorConfig `mapstructure:"trafficGenerator"`
}

type ExperimentConfig struct {
	Template      string        `mapstructure:"template"`
	DownstreamMAC string        `mapstructure:"downstreamMac"`
	ChainLength   int           `mapstructure:"chainLength"`
	Flows         int           `mapstructure:"flows"`
	SettleDelay   time.Duration `mapstructure:"settleDelay"`
}

type NodeNamingConfig struct {
	LockNamePrefix      string `mapstructure:"lockNamePrefix"`
	FifoDirectoryPrefix string `mapstructure:"fifoDirectoryPrefix"`
}

type AddressSpaceConfig struct {
	InterfacePrefix    string   `mapstructure:"interfacePrefix"`
	InterfaceGroups    []string `mapstructure:"interfaceGroups"`
	InterfacesPerGroup int      `mapstructure:"interfacesPerGroup"`
	MACPrefix          string   `mapstructure:"macPrefix"`
	MACGroups          []string `mapstructure:"macGroups"`
	MACsPerGroup       int      `mapstructure:"macsPerGroup"`
	TotalInterfaces    int      `mapstructure:"totalInterfaces"`
	CpuMaskOffset      int      `mapstructure:"cpuMaskOffset"`
	CoresPerNode       int      `mapstructure:"coresPerNode"`
}

type WorkerConfig struct {
	Binary       string        `mapstructure:"binary"`
	ConfigFlag   string        `mapstructure:"configFlag"`
	Elevate      bool          `mapstructure:"elevate"`
	KillPattern  string        `mapstructure:"killPattern"`
	GracePeriod  time.Duration `mapstructure:"gracePeriod"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

type TrafficGeneratorConfig struct {
	Launch           bool   `mapstructure:"launch"`
	RemoteHost       string `mapstructure:"remoteHost"`
	RemoteUser       string `mapstructure:"remoteUser"`
	Password         string `mapstructure:"password"`
	Binary           string `mapstructure:"binary"`
	Script           string `mapstructure:"script"`
	DpdkConfigHome   string `mapstructure:"dpdkConfigHome"`
	DpdkConfigPrefix string `mapstructure:"dpdkConfigPrefix"`
	ScriptPrefix     string `mapstructure:"scriptPrefix"`
	ScriptDirectory  string `mapstructure:"scriptDirectory"`
}

// EffectiveKillPattern falls back to the quoted base name of the worker binary.
func (w WorkerConfig) EffectiveKillPattern() string {
	if w.KillPattern != "" {
		return w.KillPattern
	}

	return regexp.QuoteMeta(filepath.Base(w.Binary))
}

func (t TrafficGeneratorConfig) KillPattern() string {
	return regexp.QuoteMeta(t.ScriptPrefix)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verbosity", "info")
	v.SetDefault("runDirectory", utils.DefaultRunDirectory)
	v.SetDefault("configFilePrefix", utils.DefaultConfigFilePrefix)
	v.SetDefault("configFileSuffix", utils.DefaultConfigFileSuffix)

	v.SetDefault("experiment.template", utils.DefaultTemplatePath)
	v.SetDefault("experiment.downstreamMac", utils.DefaultDownstreamMAC)
	v.SetDefault("experiment.chainLength", utils.DefaultChainLength)
	v.SetDefault("experiment.flows", utils.DefaultFlows)
	v.SetDefault("experiment.settleDelay", utils.DefaultSettleDelay)

	v.SetDefault("node.lockNamePrefix", utils.DefaultLockNamePrefix)
	v.SetDefault("node.fifoDirectoryPrefix", utils.DefaultFifoDirectoryPrefix)

	v.SetDefault("addressSpace.interfacePrefix", "0000:41:")
	v.SetDefault("addressSpace.interfaceGroups", []string{"02", "03", "04", "05", "0a", "0b", "0c", "0d"})
	v.SetDefault("addressSpace.interfacesPerGroup", 8)
	v.SetDefault("addressSpace.macPrefix", "de:ad:be:02:")
	v.SetDefault("addressSpace.macGroups", []string{"02", "03"})
	v.SetDefault("addressSpace.macsPerGroup", 32)
	v.SetDefault("addressSpace.totalInterfaces", 64)
	v.SetDefault("addressSpace.cpuMaskOffset", 5)
	v.SetDefault("addressSpace.coresPerNode", 3)

	v.SetDefault("worker.binary", "/usr/local/bin/chain_node")
	v.SetDefault("worker.configFlag", "-c")
	v.SetDefault("worker.elevate", true)
	v.SetDefault("worker.killPattern", "")
	v.SetDefault("worker.gracePeriod", utils.DefaultGracePeriod)
	v.SetDefault("worker.pollInterval", utils.DefaultPollInterval)

	v.SetDefault("trafficGenerator.launch", false)
	v.SetDefault("trafficGenerator.remoteHost", "localhost")
	v.SetDefault("trafficGenerator.remoteUser", "")
	v.SetDefault("trafficGenerator.password", "")
	v.SetDefault("trafficGenerator.binary", "/opt/MoonGen/build/MoonGen")
	v.SetDefault("trafficGenerator.script", "/opt/libmoon_app/multi_traffic_gen.lua")
	v.SetDefault("trafficGenerator.dpdkConfigHome", "/opt/conf/")
	v.SetDefault("trafficGenerator.dpdkConfigPrefix", "dpdk-config-")
	v.SetDefault("trafficGenerator.scriptPrefix", "startTrafficGen")
	v.SetDefault("trafficGenerator.scriptDirectory", utils.DefaultRunDirectory)
}

func parseConfigPath(configPath string) (string, string, string) {
	configFolder, configName := filepath.Split(configPath)
	configName = strings.TrimSuffix(configName, filepath.Ext(configName))
	configType := strings.ReplaceAll(filepath.Ext(configPath), ".", "")

	if configFolder == "" {
		configFolder = "./"
	}

	return configFolder, configName, configType
}

// setupViper reads configPath on top of the defaults. An empty path means defaults and environment only.
func setupViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		return v, nil
	}

	configFolder, configName, configType := parseConfigPath(configPath)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(configFolder)

	return v, v.ReadInConfig()
}

func ReadOrchestratorConfiguration(configPath string) (OrchestratorConfig, error) {
	v, err := setupViper(configPath)
	if err != nil {
		return OrchestratorConfig{}, err
	}

	orchestratorConfig := OrchestratorConfig{}

	err = v.Unmarshal(&orchestratorConfig)
	if err != nil {
		return OrchestratorConfig{}, err
	}

	return orchestratorConfig, orchestratorConfig.Validate()
}

func (c OrchestratorConfig) Validate() error {
	if c.Worker.Binary == "" {
		return errors.New("worker.binary must be set")
	}
	if c.Worker.GracePeriod <= 0 {
		return fmt.Errorf("worker.gracePeriod must be positive (got %s)", c.Worker.GracePeriod)
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker.pollInterval must be positive (got %s)", c.Worker.PollInterval)
	}
	if _, err := regexp.Compile(c.Worker.EffectiveKillPattern()); err != nil {
		return fmt.Errorf("worker.killPattern is not a valid regular expression: %w", err)
	}
	if c.ConfigFilePrefix == "" {
		return errors.New("configFilePrefix must be set")
	}
	if c.TrafficGenerator.ScriptPrefix == "" {
		return errors.New("trafficGenerator.scriptPrefix must be set")
	}

	return nil
}
