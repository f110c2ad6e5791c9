package sysinfo

import (
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

const gib = uint64(1) << 30

type HostFacts struct {
	TotalRAM uint64
	CPUCores int
}

// Collect probes the local host.
func Collect() (*HostFacts, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("read memory info: %w", err)
	}
	counts, err := cpu.Counts(true)
	if err != nil {
		return nil, fmt.Errorf("read cpu info: %w", err)
	}
	return &HostFacts{TotalRAM: vm.Total, CPUCores: counts}, nil
}

// RecommendARCMax sizes the ZFS ARC: half of RAM, but always leave the
// system at least 8 GiB, and never go below 1 GiB.
func RecommendARCMax(totalRAM uint64) uint64 {
	arc := totalRAM / 2
	if totalRAM > 8*gib && totalRAM-arc < 8*gib {
		arc = totalRAM - 8*gib
	}
	if arc < gib {
		arc = gib
	}
	return arc
}

type Recommendation struct {
	Var     string
	Value   string
	Type    string
	Comment string
}

// Recommendations returns the tunables worth suggesting for this host.
func Recommendations(f *HostFacts) []Recommendation {
	return []Recommendation{
		{
			Var:     "zfs_arc_max",
			Value:   strconv.FormatUint(RecommendARCMax(f.TotalRAM), 10),
			Type:    "ZFS",
			Comment: fmt.Sprintf("half of %d GiB RAM, 8 GiB reserved for the system", f.TotalRAM/gib),
		},
		{
			Var:     "vm.swappiness",
			Value:   "1",
			Type:    "SYSCTL",
			Comment: "keep ARC resident",
		},
	}
}

// ResolveAuto maps a plan tunable with value "auto" to a concrete value
// computed from the host. Unknown vars stay unresolved.
func ResolveAuto(varName string, f *HostFacts) (string, bool) {
	switch varName {
	case "zfs_arc_max":
		return strconv.FormatUint(RecommendARCMax(f.TotalRAM), 10), true
	default:
		return "", false
	}
}
