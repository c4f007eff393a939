// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
// Description:
//   Adapter implementing the api.Affinity interface, delegating to
//   internal concurrency primitives for CPU pinning.
//
// Package adapters provides glue code between the core API contracts
// and the internal implementation.

package adapters

import (
	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/internal/concurrency"
)

// AffinityAdapter implements api.Affinity using internal concurrency functions.
// One adapter tracks the binding of one OS thread and must only be used from
// the goroutine that pinned it.
type AffinityAdapter struct {
	currentCPU int
	pinned     bool
}

// NewAffinityAdapter creates an unpinned AffinityAdapter.
func NewAffinityAdapter() api.Affinity {
	return &AffinityAdapter{currentCPU: -1}
}

// Pin binds the calling thread to cpuID. cpuID -1 picks the first CPU the
// process is allowed to run on.
func (a *AffinityAdapter) Pin(cpuID int) error {
	if cpuID == -1 {
		cpus, err := concurrency.AllowedCPUs()
		if err != nil {
			return err
		}
		if len(cpus) == 0 {
			return concurrency.ErrAffinityNotSupported
		}
		cpuID = cpus[0]
	}
	if err := concurrency.PinCurrentThread(cpuID); err != nil {
		return err
	}
	a.currentCPU = cpuID
	a.pinned = true
	return nil
}

// Unpin clears the binding, allowing the OS scheduler to migrate the thread.
func (a *AffinityAdapter) Unpin() error {
	if !a.pinned {
		return nil
	}
	if err := concurrency.UnpinCurrentThread(); err != nil {
		return err
	}
	a.pinned = false
	a.currentCPU = -1
	return nil
}

// Get returns the current CPU binding.
func (a *AffinityAdapter) Get() (cpuID int, pinned bool) {
	return a.currentCPU, a.pinned
}
