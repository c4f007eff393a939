// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Platform debug probes: CPU topology and memory visible to the process and
// the instruction set extensions kernels may rely on.

package control

import (
	"runtime"

	"github.com/pbnjay/memory"
	"golang.org/x/sys/cpu"

	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/internal/concurrency"
)

// RegisterPlatformProbes sets platform debug probes on dp.
func RegisterPlatformProbes(dp api.Debug) {
	dp.RegisterProbe("platform.cpus", func() any {
		return concurrency.NumCPUs()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.affinity", func() any {
		cpus, err := concurrency.AllowedCPUs()
		if err != nil {
			return "unsupported"
		}
		return cpus
	})
	dp.RegisterProbe("platform.total_memory", func() any {
		return memory.TotalMemory()
	})
	dp.RegisterProbe("platform.cpu_features", func() any {
		return cpuFeatures()
	})
}

func cpuFeatures() map[string]bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return map[string]bool{
			"sse4.2":  cpu.X86.HasSSE42,
			"avx":     cpu.X86.HasAVX,
			"avx2":    cpu.X86.HasAVX2,
			"avx512f": cpu.X86.HasAVX512F,
			"fma":     cpu.X86.HasFMA,
			"popcnt":  cpu.X86.HasPOPCNT,
		}
	case "arm64":
		return map[string]bool{
			"asimd":   cpu.ARM64.HasASIMD,
			"sve":     cpu.ARM64.HasSVE,
			"atomics": cpu.ARM64.HasATOMICS,
		}
	}
	return map[string]bool{}
}
