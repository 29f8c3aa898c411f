package topology

import (
	"chain_orchestrator/pkg/config"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNaming = config.NodeNamingConfig{
	LockNamePrefix:      "chain_node_",
	FifoDirectoryPrefix: "/tmp/chain_node_",
}

func testParameters(numServers int) Parameters {
	return Parameters{
		NumServers:    numServers,
		DownstreamMAC: "de:ad:be:09:02:00",
		ChainLength:   2,
		Flows:         1024,
	}
}

func TestBuildFourServers(t *testing.T) {
	builder := NewBuilder(newTestbedAddressSpace(t), testNaming)

	topology, err := builder.Build(testParameters(4))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"de:ad:be:02:03:1f",
		"de:ad:be:02:03:1e",
		"de:ad:be:02:03:1d",
		"de:ad:be:02:03:1c",
	}, topology.Peers)
	require.Len(t, topology.Nodes, 4)

	first := topology.Nodes[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "0000:41:0d.7", first.InternalDev)
	assert.Equal(t, "0000:41:02.0", first.ExternalDev)
	assert.Equal(t, "de:ad:be:02:02:00", first.ExternalGate)
	assert.Equal(t, "0xe0", first.CpuMask)
	assert.Equal(t, "chain_node_0", first.LockName)
	assert.Equal(t, "/tmp/chain_node_0", first.FifoDirectory)
	assert.Equal(t, 2, first.ChainLength)
	assert.Equal(t, "de:ad:be:09:02:00", first.DownstreamMAC)
	assert.Equal(t, topology.Peers, first.Peers)

	last := topology.Nodes[3]
	assert.Equal(t, "0000:41:0d.4", last.InternalDev)
	assert.Equal(t, "0000:41:02.3", last.ExternalDev)
	assert.Equal(t, "de:ad:be:02:02:03", last.ExternalGate)
	assert.Equal(t, "0x1c000", last.CpuMask)
	assert.Equal(t, "chain_node_3", last.LockName)
}

func TestBuildProducesDisjointSlots(t *testing.T) {
	builder := NewBuilder(newTestbedAddressSpace(t), testNaming)
	maxServers := builder.AddressSpace().MaxServers()

	for k := 1; k <= maxServers; k++ {
		topology, err := builder.Build(testParameters(k))
		require.NoErrorf(t, err, "Building %d servers should succeed", k)

		assert.Len(t, topology.Nodes, k)
		assert.Len(t, topology.Peers, k)

		internalSlots := make(map[int]bool)
		externalSlots := make(map[int]bool)
		for i := 0; i < k; i++ {
			internal, external := builder.Slots(i)
			internalSlots[internal] = true
			externalSlots[external] = true
		}

		for slot := range internalSlots {
			assert.Falsef(t, externalSlots[slot], "Slot %d used as internal and external for %d servers", slot, k)
		}

		devices := make(map[string]bool)
		for _, node := range topology.Nodes {
			assert.False(t, devices[node.InternalDev], "Duplicate device %s", node.InternalDev)
			devices[node.InternalDev] = true
			assert.False(t, devices[node.ExternalDev], "Duplicate device %s", node.ExternalDev)
			devices[node.ExternalDev] = true
		}
	}
}

func TestBuildNodesDoNotSharePeerSlices(t *testing.T) {
	builder := NewBuilder(newTestbedAddressSpace(t), testNaming)

	topology, err := builder.Build(testParameters(2))
	require.NoError(t, err)

	topology.Nodes[0].Peers[0] = "changed"
	assert.NotEqual(t, "changed", topology.Nodes[1].Peers[0])
	assert.NotEqual(t, "changed", topology.Peers[0])
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	builder := NewBuilder(newTestbedAddressSpace(t), testNaming)

	tests := []struct {
		name   string
		params Parameters
	}{
		{name: "zero servers", params: testParameters(0)},
		{name: "negative servers", params: testParameters(-3)},
		{name: "more servers than half the slots", params: testParameters(33)},
		{name: "broken downstream MAC", params: Parameters{NumServers: 2, DownstreamMAC: "not-a-mac", ChainLength: 1, Flows: 1}},
		{name: "zero chain length", params: Parameters{NumServers: 2, DownstreamMAC: "de:ad:be:09:02:00", ChainLength: 0, Flows: 1}},
		{name: "zero flows", params: Parameters{NumServers: 2, DownstreamMAC: "de:ad:be:09:02:00", ChainLength: 1, Flows: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topology, err := builder.Build(tt.params)
			assert.Nil(t, topology)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestServerCountErrorType(t *testing.T) {
	builder := NewBuilder(newTestbedAddressSpace(t), testNaming)

	_, err := builder.Build(testParameters(0))

	var countError *InvalidServerCountError
	require.True(t, errors.As(err, &countError))
	assert.Equal(t, 32, countError.Max)
}

func TestBuildReportsTooShortMACTable(t *testing.T) {
	cfg := testbedAddressSpaceConfig()
	space, err := NewAddressSpace(cfg)
	require.NoError(t, err)

	// Bypass validation to emulate a misconfigured table.
	space.macGroups = space.macGroups[:1]

	_, err = NewBuilder(space, testNaming).Build(testParameters(2))

	var outOfRange *OutOfRangeError
	assert.True(t, errors.As(err, &outOfRange))
}
