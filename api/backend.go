// Package api
// Author: momentics <momentics@gmail.com>
//
// Backend contract: the fixed set of entry points a thread-pool
// implementation must provide to be selectable as a threading layer.

package api

// Backend abstracts one thread-pool implementation.
//
// A Backend is launched exactly once, shared read-only afterwards and closed
// only at shutdown. All methods except Launch and Close are safe for
// concurrent use once Launch has returned.
type Backend interface {
	// Name returns the symbolic threading layer name.
	Name() string

	// Launch creates exactly n workers.
	Launch(n int) error

	// ThreadCount returns the number of active threads.
	ThreadCount() int

	// SetThreadCount masks the pool down to n active threads.
	// n must be within [1, launched].
	SetThreadCount(n int) error

	// ThreadID identifies the calling worker: 1..launched for workers,
	// 0 for any goroutine that is not a worker of this backend.
	ThreadID() int

	// ParallelFor runs k once per work item of d and blocks until all
	// work items complete. requested is advisory.
	ParallelFor(k Kernel, d Domain, innerNdim, operands, requested int)

	// ChunkSize returns the scheduling granularity hint, 0 for default.
	ChunkSize() int

	// SetChunkSize sets the scheduling granularity hint.
	SetChunkSize(n int) error

	// ScheduleRanges partitions [0, total) into at most threads ranges.
	ScheduleRanges(total, threads int) []Range

	// Close stops all workers.
	Close() error
}

// NotWorkerThread is the ThreadID reported for non-worker callers.
const NotWorkerThread = 0
