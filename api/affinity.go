// Package api
// Author: momentics@gmail.com
//
// CPU affinity and thread pinning definitions.

package api

// Affinity controls execution of the calling OS thread on particular CPUs.
type Affinity interface {
	// Pin locks the calling goroutine to its OS thread and binds the thread to cpuID.
	Pin(cpuID int) error
	// Unpin removes affinity and releases the OS thread lock.
	Unpin() error
	// Get returns the current CPU binding, -1 when unpinned.
	Get() (cpuID int, pinned bool)
}
