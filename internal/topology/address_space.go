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
	"math/big"
	"strconv"
	"strings"
)

// AddressSpace maps slots to VF interfaces and MAC addresses. Interface and MAC tables are partitioned
// independently, so the two group sizes need not match.
type AddressSpace struct {
	interfacePrefix    string
	interfaceGroups    []string
	interfacesPerGroup int

	macPrefix    string
	macGroups    []string
	macsPerGroup int

	totalInterfaces int
	cpuMaskOffset   int
	coresPerNode    int
}

func NewAddressSpace(cfg config.AddressSpaceConfig) (*AddressSpace, error) {
	as := &AddressSpace{
		interfacePrefix:    cfg.InterfacePrefix,
		interfaceGroups:    append([]string(nil), cfg.InterfaceGroups...),
		interfacesPerGroup: cfg.InterfacesPerGroup,
		macPrefix:          cfg.MACPrefix,
		macGroups:          append([]string(nil), cfg.MACGroups...),
		macsPerGroup:       cfg.MACsPerGroup,
		totalInterfaces:    cfg.TotalInterfaces,
		cpuMaskOffset:      cfg.CpuMaskOffset,
		coresPerNode:       cfg.CoresPerNode,
	}

	if err := as.Validate(); err != nil {
		return nil, err
	}

	return as, nil
}

func (as *AddressSpace) Validate() error {
	switch {
	case as.totalInterfaces <= 0:
		return &InvalidInputError{Field: "addressSpace.totalInterfaces", Reason: "must be positive"}
	case as.interfacesPerGroup <= 0:
		return &InvalidInputError{Field: "addressSpace.interfacesPerGroup", Reason: "must be positive"}
	case as.macsPerGroup <= 0:
		return &InvalidInputError{Field: "addressSpace.macsPerGroup", Reason: "must be positive"}
	case as.coresPerNode <= 0:
		return &InvalidInputError{Field: "addressSpace.coresPerNode", Reason: "must be positive"}
	case as.cpuMaskOffset < 0:
		return &InvalidInputError{Field: "addressSpace.cpuMaskOffset", Reason: "must not be negative"}
	case len(as.interfaceGroups)*as.interfacesPerGroup < as.totalInterfaces:
		return &InvalidInputError{
			Field:  "addressSpace.interfaceGroups",
			Reason: fmt.Sprintf("%d groups of %d cannot cover %d interfaces", len(as.interfaceGroups), as.interfacesPerGroup, as.totalInterfaces),
		}
	case len(as.macGroups)*as.macsPerGroup < as.totalInterfaces:
		return &InvalidInputError{
			Field:  "addressSpace.macGroups",
			Reason: fmt.Sprintf("%d groups of %d cannot cover %d interfaces", len(as.macGroups), as.macsPerGroup, as.totalInterfaces),
		}
	case as.macsPerGroup > 256:
		return &InvalidInputError{Field: "addressSpace.macsPerGroup", Reason: "last MAC octet holds at most 256 values"}
	}

	return nil
}

func (as *AddressSpace) TotalInterfaces() int {
	return as.totalInterfaces
}

// MaxServers is the largest server count for which internal and external slots do not overlap.
func (as *AddressSpace) MaxServers() int {
	return as.totalInterfaces / 2
}

// InterfaceFor returns the PCI address of the VF in the given slot, e.g. 0000:41:02.0.
func (as *AddressSpace) InterfaceFor(slot int) (string, error) {
	if slot < 0 || slot >= as.totalInterfaces {
		return "", &OutOfRangeError{Kind: "interface slot", Value: slot, Limit: as.totalInterfaces}
	}

	group := slot / as.interfacesPerGroup
	if group >= len(as.interfaceGroups) {
		return "", &OutOfRangeError{Kind: "interface group", Value: group, Limit: len(as.interfaceGroups)}
	}

	return as.interfacePrefix + as.interfaceGroups[group] + "." + strconv.Itoa(slot%as.interfacesPerGroup), nil
}

// MACFor returns the MAC address of the VF in the given slot, e.g. de:ad:be:02:02:00.
func (as *AddressSpace) MACFor(slot int) (string, error) {
	if slot < 0 {
		return "", &OutOfRangeError{Kind: "MAC slot", Value: slot, Limit: len(as.macGroups) * as.macsPerGroup}
	}

	group := slot / as.macsPerGroup
	if group >= len(as.macGroups) {
		return "", &OutOfRangeError{Kind: "MAC group", Value: group, Limit: len(as.macGroups)}
	}

	return fmt.Sprintf("%s%s:%02x", as.macPrefix, as.macGroups[group], slot%as.macsPerGroup), nil
}

// CpuMaskFor reserves coresPerNode consecutive CPUs per node. The extra core beyond the two busy
// polling ones lets the worker still handle a termination signal. Masks are not limited to 64 bits.
func (as *AddressSpace) CpuMaskFor(index int) (*big.Int, error) {
	if index < 0 {
		return nil, &OutOfRangeError{Kind: "CPU mask node index", Value: index, Limit: -1}
	}

	mask := new(big.Int)
	base := index*as.coresPerNode + as.cpuMaskOffset
	for bit := base; bit < base+as.coresPerNode; bit++ {
		mask.SetBit(mask, bit, 1)
	}

	return mask, nil
}

func FormatCpuMask(mask *big.Int) string {
	return "0x" + mask.Text(16)
}

func ParseCpuMask(value string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")

	mask, ok := new(big.Int).SetString(trimmed, 16)
	if !ok || mask.Sign() < 0 {
		return nil, &InvalidInputError{Field: "cpu_mask", Reason: fmt.Sprintf("%q is not a hexadecimal mask", value)}
	}

	return mask, nil
}
