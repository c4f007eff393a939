// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake backend for testing. Runs every work item serially on the caller,
// counts lifecycle calls and lets tests inject launch failures.

package fake

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/internal/concurrency"
)

// Backend is a fake implementation of api.Backend.
type Backend struct {
	name   string
	params concurrency.Params

	// LaunchErr, when set, is returned by Launch.
	LaunchErr error
	// LaunchDelay widens the window in which concurrent initializers race.
	LaunchDelay time.Duration
	// ForceThreadCount, when positive, overrides ThreadCount.
	ForceThreadCount int

	launches atomic.Int32
	closes   atomic.Int32

	mu     sync.Mutex
	ranges [][]api.Range
}

// NewBackend creates a fake backend reporting name.
func NewBackend(name string) *Backend {
	return &Backend{name: name}
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) Launch(n int) error {
	b.launches.Add(1)
	if b.LaunchDelay > 0 {
		time.Sleep(b.LaunchDelay)
	}
	if b.LaunchErr != nil {
		return b.LaunchErr
	}
	return b.params.Launch(n)
}

func (b *Backend) ThreadCount() int {
	if b.ForceThreadCount != 0 {
		return b.ForceThreadCount
	}
	return b.params.ThreadCount()
}

func (b *Backend) SetThreadCount(n int) error { return b.params.SetThreadCount(n) }
func (b *Backend) ThreadID() int              { return api.NotWorkerThread }
func (b *Backend) ChunkSize() int             { return b.params.ChunkSize() }
func (b *Backend) SetChunkSize(n int) error   { return b.params.SetChunkSize(n) }

func (b *Backend) ScheduleRanges(total, threads int) []api.Range {
	return concurrency.Ranges(total, threads, b.params.ChunkSize())
}

// ParallelFor runs the work items in order on the calling goroutine.
func (b *Backend) ParallelFor(k api.Kernel, d api.Domain, innerNdim, operands, requested int) {
	rs := b.ScheduleRanges(d.Count(), b.params.Active(requested))
	b.mu.Lock()
	b.ranges = append(b.ranges, rs)
	b.mu.Unlock()
	for _, r := range rs {
		concurrency.Invoke(k, d, r, innerNdim, operands)
	}
}

func (b *Backend) Close() error {
	b.closes.Add(1)
	return nil
}

// Launches returns how many times Launch was called.
func (b *Backend) Launches() int { return int(b.launches.Load()) }

// Closes returns how many times Close was called.
func (b *Backend) Closes() int { return int(b.closes.Load()) }

// Dispatched returns the ranges of every ParallelFor call so far.
func (b *Backend) Dispatched() [][]api.Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]api.Range, len(b.ranges))
	copy(out, b.ranges)
	return out
}

// HostLock is a fake api.HostLock that tracks its hold state.
type HostLock struct {
	mu       sync.Mutex
	held     bool
	releases int
}

// NewHostLock returns a HostLock that starts held.
func NewHostLock() *HostLock { return &HostLock{held: true} }

func (h *HostLock) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.held = false
	h.releases++
}

func (h *HostLock) Reacquire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.held = true
}

// Held reports whether the lock is currently held.
func (h *HostLock) Held() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.held
}

// Releases returns how many times the lock was released.
func (h *HostLock) Releases() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.releases
}

var (
	_ api.Backend  = (*Backend)(nil)
	_ api.HostLock = (*HostLock)(nil)
)
