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
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

type Builder struct {
	space  *AddressSpace
	naming config.NodeNamingConfig
}

func NewBuilder(space *AddressSpace, naming config.NodeNamingConfig) *Builder {
	return &Builder{
		space:  space,
		naming: naming,
	}
}

func (b *Builder) AddressSpace() *AddressSpace {
	return b.space
}

// ValidateServerCount rejects counts for which internal and external slots would overlap.
func (b *Builder) ValidateServerCount(numServers int) error {
	if numServers <= 0 || numServers > b.space.MaxServers() {
		return &InvalidServerCountError{NumServers: numServers, Max: b.space.MaxServers()}
	}

	return nil
}

// Slots returns the internal and external slot of a node. Internal slots are taken from the top of
// the slot space, external ones from the bottom.
func (b *Builder) Slots(index int) (internal int, external int) {
	return internalSlot(b.space, index), externalSlot(index)
}

func internalSlot(space *AddressSpace, index int) int {
	return space.TotalInterfaces() - (index + 1)
}

func externalSlot(index int) int {
	return index
}

// Peers returns the MACs of all internal interfaces in node order.
func (b *Builder) Peers(numServers int) ([]string, error) {
	peers := make([]string, 0, numServers)
	for i := 0; i < numServers; i++ {
		mac, err := b.space.MACFor(internalSlot(b.space, i))
		if err != nil {
			return nil, err
		}

		peers = append(peers, mac)
	}

	return peers, nil
}

// Build allocates everything up front, so a failure never produces a partial topology.
func (b *Builder) Build(params Parameters) (*Topology, error) {
	if err := b.ValidateServerCount(params.NumServers); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	peers, err := b.Peers(params.NumServers)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("Chain peers: %v", peers)

	nodes := make([]NodeConfig, 0, params.NumServers)
	for i := 0; i < params.NumServers; i++ {
		node, err := b.buildNode(i, peers, params)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}

		nodes = append(nodes, node)
	}

	return &Topology{
		Peers: peers,
		Nodes: nodes,
	}, nil
}

func (b *Builder) buildNode(index int, peers []string, params Parameters) (NodeConfig, error) {
	internal, external := b.Slots(index)

	internalDev, err := b.space.InterfaceFor(internal)
	if err != nil {
		return NodeConfig{}, err
	}

	externalDev, err := b.space.InterfaceFor(external)
	if err != nil {
		return NodeConfig{}, err
	}

	externalGate, err := b.space.MACFor(external)
	if err != nil {
		return NodeConfig{}, err
	}

	mask, err := b.space.CpuMaskFor(index)
	if err != nil {
		return NodeConfig{}, err
	}

	return NodeConfig{
		Index:         index,
		DownstreamMAC: params.DownstreamMAC,
		Peers:         append([]string(nil), peers...),
		InternalDev:   internalDev,
		ExternalDev:   externalDev,
		ExternalGate:  externalGate,
		CpuMask:       FormatCpuMask(mask),
		LockName:      b.naming.LockNamePrefix + strconv.Itoa(index),
		FifoDirectory: b.naming.FifoDirectoryPrefix + strconv.Itoa(index),
		ChainLength:   params.ChainLength,
	}, nil
}
