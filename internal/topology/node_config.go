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

package topology

import (
	"chain_orchestrator/pkg/config"
	"net"
)

// NodeConfig holds the per-node fields overlaid on the template document.
type NodeConfig struct {
	Index int `json:"-"`

	DownstreamMAC string   `json:"downstream_mac"`
	Peers         []string `json:"peers"`
	InternalDev   string   `json:"int_dev"`
	ExternalDev   string   `json:"ext_dev"`
	ExternalGate  string   `json:"ext_gate"`
	CpuMask       string   `json:"cpu_mask"`
	LockName      string   `json:"lock_name"`
	FifoDirectory string   `json:"fifo_dir"`
	ChainLength   int      `json:"chain_len"`
}

// Keys lists the document keys a NodeConfig owns.
var Keys = []string{
	"downstream_mac",
	"peers",
	"int_dev",
	"ext_dev",
	"ext_gate",
	"cpu_mask",
	"lock_name",
	"fifo_dir",
	"chain_len",
}

type Parameters struct {
	NumServers    int
	DownstreamMAC string
	ChainLength   int
	Flows         int
}

func ParametersFromConfig(numServers int, cfg config.ExperimentConfig) Parameters {
	return Parameters{
		NumServers:    numServers,
		DownstreamMAC: cfg.DownstreamMAC,
		ChainLength:   cfg.ChainLength,
		Flows:         cfg.Flows,
	}
}

// Validate checks everything except the server count, which depends on the address space.
func (p Parameters) Validate() error {
	if _, err := net.ParseMAC(p.DownstreamMAC); err != nil {
		return &InvalidInputError{Field: "downstream MAC", Reason: err.Error()}
	}
	if p.ChainLength < 1 {
		return &InvalidInputError{Field: "chain length", Reason: "must be at least 1"}
	}
	if p.Flows < 1 {
		return &InvalidInputError{Field: "flow count", Reason: "must be at least 1"}
	}

	return nil
}

type Topology struct {
	Peers []string
	Nodes []NodeConfig
}
