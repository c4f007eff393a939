// File: default.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide default Layer, configured from the environment on first use.

package threadlayer

import (
	"sync"

	"github.com/momentics/threadlayer/api"
)

var (
	defaultMu    sync.Mutex
	defaultLayer *Layer
)

// Default returns the process-wide Layer, creating it from FromEnv on first
// use. A configuration error is returned and not cached, so fixing the
// environment and calling again succeeds.
func Default() (*Layer, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLayer != nil {
		return defaultLayer, nil
	}
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defaultLayer = l
	return l, nil
}

// EnsureReady initializes the default Layer.
func EnsureReady() error {
	l, err := Default()
	if err != nil {
		return err
	}
	return l.EnsureReady()
}

// ParallelFor dispatches k over d on the default Layer.
func ParallelFor(k api.Kernel, d api.Domain, innerNdim, operands int) error {
	l, err := Default()
	if err != nil {
		return err
	}
	return l.ParallelFor(k, d, innerNdim, operands)
}

// SetNumThreads sets the active thread count of the default Layer.
func SetNumThreads(n int) error {
	l, err := Default()
	if err != nil {
		return err
	}
	return l.SetNumThreads(n)
}

// NumThreads returns the active thread count of the default Layer.
func NumThreads() (int, error) {
	l, err := Default()
	if err != nil {
		return 0, err
	}
	return l.NumThreads()
}

// SetChunkSize sets the chunk size of the default Layer.
func SetChunkSize(n int) error {
	l, err := Default()
	if err != nil {
		return err
	}
	return l.SetChunkSize(n)
}

// ChunkSize returns the chunk size of the default Layer.
func ChunkSize() (int, error) {
	l, err := Default()
	if err != nil {
		return 0, err
	}
	return l.ChunkSize()
}

// ThreadID identifies the calling worker of the default Layer.
func ThreadID() int {
	defaultMu.Lock()
	l := defaultLayer
	defaultMu.Unlock()
	if l == nil {
		return api.NotWorkerThread
	}
	return l.ThreadID()
}

// Name returns the threading layer selected by the default Layer.
func Name() (string, error) {
	defaultMu.Lock()
	l := defaultLayer
	defaultMu.Unlock()
	if l == nil {
		return "", api.NewError(api.ErrCodeNotInitialized, "Threading layer is not initialized.")
	}
	return l.Name()
}

// Shutdown stops the default Layer. The default Layer stays closed.
func Shutdown() error {
	defaultMu.Lock()
	l := defaultLayer
	defaultMu.Unlock()
	if l == nil {
		return nil
	}
	return l.Shutdown()
}
