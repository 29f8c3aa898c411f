package hardware

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCpu(t *testing.T) {
	assert.Positive(t, GetNumberCpus())
}

func TestGetMemory(t *testing.T) {
	assert.Positive(t, GetMemory())
}

func TestHostInventory(t *testing.T) {
	inventory := GetHostInventory()

	assert.Positive(t, inventory.LogicalCpus)
	assert.Positive(t, inventory.TotalMemory)
}

func TestCheckCpuMask(t *testing.T) {
	tests := []struct {
		name        string
		mask        int64
		cpus        uint64
		expectError bool
	}{
		{name: "first node on a large host", mask: 0xe0, cpus: 64, expectError: false},
		{name: "second node fits exactly", mask: 0x700, cpus: 11, expectError: false},
		{name: "second node one CPU short", mask: 0x700, cpus: 10, expectError: true},
		{name: "empty mask", mask: 0, cpus: 64, expectError: true},
	}

	wide := new(big.Int).SetBit(new(big.Int), 70, 1)
	assert.Error(t, CheckCpuMask(wide, 64), "Bit 70 cannot exist on a 64 CPU host")
	assert.NoError(t, CheckCpuMask(wide, 128))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCpuMask(big.NewInt(tt.mask), tt.cpus)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
