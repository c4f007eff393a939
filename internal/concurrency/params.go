// File: internal/concurrency/params.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Execution parameters shared by every worker of a backend: launched thread
// count (fixed at launch), active thread count and chunk size. Reads never
// observe torn values; concurrent writers race on a last-writer-wins basis.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/threadlayer/api"
)

// Params holds the backend-scoped execution parameters.
type Params struct {
	launched atomic.Int64
	threads  atomic.Int64
	chunk    atomic.Int64
}

// Launch fixes the launched thread count and activates all threads.
func (p *Params) Launch(n int) error {
	if n < 1 {
		return api.Errorf(api.ErrCodeConfig, "Number of threads specified must be > 0, got %d", n)
	}
	if !p.launched.CompareAndSwap(0, int64(n)) {
		return api.Errorf(api.ErrCodeInit, "threads already launched (%d)", p.launched.Load())
	}
	p.threads.Store(int64(n))
	return nil
}

// Launched returns the launched thread count, 0 before Launch.
func (p *Params) Launched() int { return int(p.launched.Load()) }

// ThreadCount returns the active thread count.
func (p *Params) ThreadCount() int { return int(p.threads.Load()) }

// SetThreadCount validates 1 <= n <= launched and stores n.
func (p *Params) SetThreadCount(n int) error {
	limit := p.Launched()
	if n < 1 || n > limit {
		return api.Errorf(api.ErrCodeOutOfRange, "The number of threads must be between 1 and %d", limit).
			WithContext("requested", n)
	}
	p.threads.Store(int64(n))
	return nil
}

// ChunkSize returns the scheduling granularity hint.
func (p *Params) ChunkSize() int { return int(p.chunk.Load()) }

// SetChunkSize stores a non-negative chunk size.
func (p *Params) SetChunkSize(n int) error {
	if n < 0 {
		return api.Errorf(api.ErrCodeOutOfRange, "The parallel chunk size must be non-negative, got %d", n)
	}
	p.chunk.Store(int64(n))
	return nil
}

// Active clamps requested into [1, ThreadCount()].
func (p *Params) Active(requested int) int {
	n := p.ThreadCount()
	if requested >= 1 && requested < n {
		n = requested
	}
	return max(n, 1)
}
