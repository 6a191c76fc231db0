package nbio

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Capacity is a startup snapshot of host resources, logged once when a
// server process boots so an operator can sanity-check configured limits
// (listen backlog, max body size) against the machine it landed on.
type Capacity struct {
	LogicalCPUs  int
	TotalMemory  uint64
	UsedMemoryPC float64
}

// ProbeCapacity reads host CPU count and memory pressure. Failures from
// either probe are non-fatal: the field is left at its zero value and the
// caller logs what it got.
func ProbeCapacity() Capacity {
	var cap Capacity
	if n, err := cpu.Counts(true); err == nil {
		cap.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		cap.TotalMemory = vm.Total
		cap.UsedMemoryPC = vm.UsedPercent
	}
	return cap
}

func (c Capacity) String() string {
	return fmt.Sprintf("cpus=%d total_memory_bytes=%d used_memory_pct=%.1f", c.LogicalCPUs, c.TotalMemory, c.UsedMemoryPC)
}
