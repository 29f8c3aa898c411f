package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	readConfigError  string = "Failed to read configuration"
	parseConfigError string = "Failed to parse configuration"
)

func TestReadOrchestratorConfiguration(t *testing.T) {
	config, err := ReadOrchestratorConfiguration("../../cmd/chain_orchestrator/config.yaml")
	assert.NoError(t, err, readConfigError)

	assert.True(t, len(config.Verbosity) > 0, parseConfigError)
	assert.Equal(t, 64, config.AddressSpace.TotalInterfaces, parseConfigError)
	assert.Len(t, config.AddressSpace.InterfaceGroups, 8, parseConfigError)
	assert.Equal(t, []string{"02", "03"}, config.AddressSpace.MACGroups, parseConfigError)
	assert.Equal(t, 5*time.Second, config.Worker.GracePeriod, parseConfigError)
	assert.Equal(t, 50*time.Millisecond, config.Worker.PollInterval, parseConfigError)
	assert.Equal(t, time.Second, config.Experiment.SettleDelay, parseConfigError)
}

func TestReadDefaultConfiguration(t *testing.T) {
	config, err := ReadOrchestratorConfiguration("")
	require.NoError(t, err, readConfigError)

	assert.Equal(t, "info", config.Verbosity)
	assert.Equal(t, "0000:41:", config.AddressSpace.InterfacePrefix)
	assert.Equal(t, 32, config.AddressSpace.MACsPerGroup)
	assert.Equal(t, 3, config.AddressSpace.CoresPerNode)
	assert.True(t, config.Worker.Elevate)
	assert.Equal(t, "chain_node", config.Worker.EffectiveKillPattern())
}

func TestPartialConfigurationKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worker:\n  binary: /opt/bin/node.v2\n  gracePeriod: 250ms\n"), 0644))

	config, err := ReadOrchestratorConfiguration(path)
	require.NoError(t, err, readConfigError)

	assert.Equal(t, "/opt/bin/node.v2", config.Worker.Binary)
	assert.Equal(t, 250*time.Millisecond, config.Worker.GracePeriod)
	assert.Equal(t, `node\.v2`, config.Worker.EffectiveKillPattern())
	assert.Equal(t, 64, config.AddressSpace.TotalInterfaces)
}

func TestMissingConfigurationFile(t *testing.T) {
	_, err := ReadOrchestratorConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("CHAIN_VERBOSITY", "trace")

	config, err := ReadOrchestratorConfiguration("")
	require.NoError(t, err, readConfigError)

	assert.Equal(t, "trace", config.Verbosity)
}

func TestValidate(t *testing.T) {
	valid, err := ReadOrchestratorConfiguration("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *OrchestratorConfig)
	}{
		{name: "empty worker binary", mutate: func(c *OrchestratorConfig) { c.Worker.Binary = "" }},
		{name: "zero grace period", mutate: func(c *OrchestratorConfig) { c.Worker.GracePeriod = 0 }},
		{name: "zero poll interval", mutate: func(c *OrchestratorConfig) { c.Worker.PollInterval = 0 }},
		{name: "broken kill pattern", mutate: func(c *OrchestratorConfig) { c.Worker.KillPattern = "(" }},
		{name: "empty config prefix", mutate: func(c *OrchestratorConfig) { c.ConfigFilePrefix = "" }},
		{name: "empty script prefix", mutate: func(c *OrchestratorConfig) { c.TrafficGenerator.ScriptPrefix = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestGetReaderFromPath(t *testing.T) {
	type want struct {
		configFolder string
		configName   string
		configType   string
	}

	tests := []struct {
		name     string
		input    string
		expected want
	}{
		{
			name:  "Simple smoke input",
			input: "test/test.yaml",
			expected: want{
				configFolder: "test/",
				configName:   "test",
				configType:   "yaml",
			},
		},
		{
			name:  "Test with no folder",
			input: "filename.txt",
			expected: want{
				configFolder: "./",
				configName:   "filename",
				configType:   "txt",
			},
		},
		{
			name:  "Test with absolute folder",
			input: "/etc/chain/orchestrator.yml",
			expected: want{
				configFolder: "/etc/chain/",
				configName:   "orchestrator",
				configType:   "yml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFolder, configName, configType := parseConfigPath(tt.input)

			assert.Equal(t, tt.expected.configFolder, configFolder, "Not the correct config folder.")
			assert.Equal(t, tt.expected.configName, configName, "Not the correct config name.")
			assert.Equal(t, tt.expected.configType, configType, "Not the correct config type.")
		})
	}
}
