//go:build linux

// File: internal/concurrency/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux thread affinity through sched_{get,set}affinity. Pid 0 addresses the
// calling thread.

package concurrency

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	processSetOnce sync.Once
	processSet     unix.CPUSet
	processSetErr  error
)

// processCPUSet returns the affinity mask the process started with.
func processCPUSet() (unix.CPUSet, error) {
	processSetOnce.Do(func() {
		processSetErr = unix.SchedGetaffinity(0, &processSet)
	})
	return processSet, processSetErr
}

func platformAllowedCPUs() ([]int, error) {
	set, err := processCPUSet()
	if err != nil {
		return nil, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	cpus := make([]int, 0, set.Count())
	for cpu := 0; len(cpus) < set.Count(); cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}

func platformPinCurrentThread(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity cpu %d: %w", cpuID, err)
	}
	return nil
}

func platformUnpinCurrentThread() error {
	set, err := processCPUSet()
	if err != nil {
		return err
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity: %w", err)
	}
	return nil
}
