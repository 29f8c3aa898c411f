package hardware

import (
	"fmt"
	"math/big"
	"runtime"

	"github.com/pbnjay/memory"
	"github.com/shirou/gopsutil/cpu"
	"github.com/sirupsen/logrus"
)

type HostInventory struct {
	LogicalCpus  uint64
	PhysicalCpus uint64
	TotalMemory  uint64
}

func GetNumberCpus() uint64 {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		return uint64(runtime.NumCPU())
	}

	return uint64(count)
}

func GetMemory() uint64 {
	return memory.TotalMemory()
}

func GetHostInventory() HostInventory {
	physical, err := cpu.Counts(false)
	if err != nil {
		logrus.Debugf("Failed to count physical cores - %v", err)
		physical = 0
	}

	return HostInventory{
		LogicalCpus:  GetNumberCpus(),
		PhysicalCpus: uint64(physical),
		TotalMemory:  GetMemory(),
	}
}

// CheckCpuMask fails if the mask selects a CPU id the host does not have.
func CheckCpuMask(mask *big.Int, logicalCpus uint64) error {
	if mask == nil || mask.Sign() == 0 {
		return fmt.Errorf("empty CPU mask")
	}

	highest := uint64(mask.BitLen() - 1)
	if highest >= logicalCpus {
		return fmt.Errorf("CPU mask 0x%s references CPU %d but the host has %d logical CPUs", mask.Text(16), highest, logicalCpus)
	}

	return nil
}
