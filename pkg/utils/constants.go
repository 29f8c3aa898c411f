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

package utils

import "time"

const (
	DefaultConfigPath string = "cmd/chain_orchestrator/config.yaml"

	DefaultRunDirectory     string = "./"
	DefaultConfigFilePrefix string = "chain_node_config_"
	DefaultConfigFileSuffix string = ".cfg"
	DefaultTemplatePath     string = "chain_node_template.cfg"

	DefaultLockNamePrefix      string = "chain_node_"
	DefaultFifoDirectoryPrefix string = "/tmp/chain_node_"

	DefaultDownstreamMAC string = "de:ad:be:09:02:00"
	DefaultChainLength          = 1
	DefaultFlows                = 1

	DefaultSettleDelay  = 1 * time.Second
	DefaultGracePeriod  = 5 * time.Second
	DefaultPollInterval = 50 * time.Millisecond

	ManifestFileName string = "run_manifest.yaml"

	ElevationCommand string = "sudo"
	// workers run in their own process group and cannot prompt on the terminal
	NonInteractiveFlag string = "-n"
)
