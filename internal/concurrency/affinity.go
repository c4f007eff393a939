// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-platform CPU affinity management with runtime detection.

package concurrency

import (
	"runtime"
)

// AffinitySupported reports whether the calling process can query and set
// thread CPU affinity on this platform.
func AffinitySupported() bool {
	_, err := platformAllowedCPUs()
	return err == nil
}

// AllowedCPUs returns the CPUs the process may run on, in ascending order.
func AllowedCPUs() ([]int, error) {
	return platformAllowedCPUs()
}

// PinCurrentThread locks the calling goroutine to its OS thread and binds
// that thread to cpuID.
func PinCurrentThread(cpuID int) error {
	runtime.LockOSThread()
	if err := platformPinCurrentThread(cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// UnpinCurrentThread restores the process-wide CPU set on the calling thread
// and releases the OS thread lock taken by PinCurrentThread.
func UnpinCurrentThread() error {
	defer runtime.UnlockOSThread()
	return platformUnpinCurrentThread()
}

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}
