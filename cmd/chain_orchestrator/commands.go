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

package main

import (
	"chain_orchestrator/internal/experiment"
	"chain_orchestrator/internal/supervisor"
	"chain_orchestrator/internal/topology"
	"chain_orchestrator/pkg/config"
	"chain_orchestrator/pkg/logger"
	"chain_orchestrator/pkg/utils"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "chain_orchestrator",
		Short:         "Chain replication testbed orchestrator",
		Long:          "Generates per-node configurations for a chain of packet-processing nodes, starts one node per configuration and tears everything down once the experiment is over.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", utils.DefaultConfigPath, "Path to the orchestrator configuration file")
	root.PersistentFlags().String("verbosity", "", "Logging verbosity - choose from [info, debug, trace]")

	root.AddCommand(newRunCommand(), newGenerateCommand(), newSweepCommand(), newAddressCommand())

	return root
}

func addExperimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("template", "t", "", "The JSON template of the node configuration")
	cmd.Flags().StringP("mac", "m", "", "MAC address of the downstream interface")
	cmd.Flags().IntP("length", "l", utils.DefaultChainLength, "Length of the replication chain, 1 means no replication of flow state")
	cmd.Flags().IntP("flows", "f", utils.DefaultFlows, "Number of flows sent by each traffic generator")
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <numServers>",
		Short: "Generate configurations, start the chain nodes and guide through the experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			numServers, err := parseServerCount(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}

			ctx, stop := utils.TerminationContext(cmd.Context())
			defer stop()

			pool := supervisor.NewSupervisor(supervisor.ConfigFromWorker(cfg.Worker))

			driver, err := experiment.NewDriver(cfg, pool, experiment.NewConsoleOperator(os.Stdin, cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			return driver.Run(ctx, numServers)
		},
	}

	addExperimentFlags(cmd)
	return cmd
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <numServers>",
		Short: "Only write the node configurations and traffic generator scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			numServers, err := parseServerCount(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}

			driver, err := experiment.NewDriver(cfg, nil, nil)
			if err != nil {
				return err
			}

			plan, err := driver.Generate(numServers)
			if err != nil {
				return err
			}

			for _, path := range plan.ConfigFiles {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}

			return nil
		},
	}

	addExperimentFlags(cmd)
	return cmd
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Kill processes left behind by a crashed run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}

			pool := supervisor.NewSupervisor(supervisor.ConfigFromWorker(cfg.Worker))
			manifestPath := filepath.Join(cfg.RunDirectory, utils.ManifestFileName)

			killed := 0

			manifest, err := supervisor.ReadManifest(manifestPath)
			switch {
			case err == nil:
				logrus.Infof("Sweeping %d processes of run %s started at %s", len(manifest.Processes), manifest.RunID, manifest.StartedAt)

				n, err := pool.SweepManifest(manifest)
				killed += n
				if err != nil {
					return err
				}
				if err := supervisor.RemoveManifest(manifestPath); err != nil {
					return err
				}
			case errors.Is(err, os.ErrNotExist):
				logrus.Infof("No run manifest at %s, sweeping by name only", manifestPath)
			default:
				return fmt.Errorf("failed to read run manifest: %w", err)
			}

			for _, pattern := range []string{cfg.TrafficGenerator.KillPattern(), cfg.Worker.EffectiveKillPattern()} {
				n, err := pool.KillByNamePattern(pattern)
				killed += n
				if err != nil {
					logrus.Warnf("Sweeping processes matching %q was incomplete - %v", pattern, err)
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Killed %d processes\n", killed)
			return nil
		},
	}
}

func newAddressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "address <slot>",
		Short: "Print the interface and MAC address of a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("the slot must be an integer, got %q", args[0])
			}

			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}

			space, err := topology.NewAddressSpace(cfg.AddressSpace)
			if err != nil {
				return err
			}

			iface, err := space.InterfaceFor(slot)
			if err != nil {
				return err
			}

			mac, err := space.MACFor(slot)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "interface: %s\nmac: %s\n", iface, mac)
			return nil
		},
	}
}

func parseServerCount(value string) (int, error) {
	numServers, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("the number of servers must be an integer, got %q", value)
	}

	return numServers, nil
}

// loadConfiguration reads the configuration file and applies the command line overrides. A missing
// file is only an error if it was asked for explicitly.
func loadConfiguration(cmd *cobra.Command) (config.OrchestratorConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if _, err := os.Stat(path); err != nil && !cmd.Flags().Changed("config") {
		path = ""
	}

	cfg, err := config.ReadOrchestratorConfiguration(path)
	if err != nil {
		return config.OrchestratorConfig{}, fmt.Errorf("failed to read configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		cfg.Verbosity, _ = flags.GetString("verbosity")
	}
	if flags.Changed("template") {
		cfg.Experiment.Template, _ = flags.GetString("template")
	}
	if flags.Changed("mac") {
		cfg.Experiment.DownstreamMAC, _ = flags.GetString("mac")
	}
	if flags.Changed("length") {
		cfg.Experiment.ChainLength, _ = flags.GetInt("length")
	}
	if flags.Changed("flows") {
		cfg.Experiment.Flows, _ = flags.GetInt("flows")
	}

	logger.SetupLogger(cfg.Verbosity)

	return cfg, nil
}
