//go:build !threadlayer_nostealing

// File: backend/stealing/stealing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Work-stealing threading layer. Ranges are queued on per-worker rings and
// balanced by stealing; the dispatching goroutine helps until its batch is
// done, which makes nested and concurrent dispatches safe. The layer always
// partitions over its own active thread count and ignores the advisory
// per-call request.

package stealing

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/backend"
	"github.com/momentics/threadlayer/internal/concurrency"
)

const (
	// InterfaceVersion is the scheduler interface revision this build provides.
	InterfaceVersion = 12000
	// MinInterfaceVersion is the oldest revision the dispatcher accepts.
	MinInterfaceVersion = 11005
)

func init() {
	backend.Register(backend.Candidate{
		Name:       backend.NameStealing,
		MinVersion: MinInterfaceVersion,
		Version:    func() (int, error) { return InterfaceVersion, nil },
		Load: func(o backend.LoadOptions) (api.Backend, error) {
			return New(o.Logger), nil
		},
	})
}

// Pool is the work-stealing threading layer.
type Pool struct {
	params concurrency.Params
	ids    concurrency.Workers
	log    *slog.Logger

	mu   sync.RWMutex
	exec *concurrency.Executor
}

// New creates an unlaunched pool.
func New(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{log: logger}
}

func (p *Pool) Name() string { return backend.NameStealing }

// Launch starts n stealing workers.
func (p *Pool) Launch(n int) error {
	if err := p.params.Launch(n); err != nil {
		return err
	}
	exec, err := concurrency.NewExecutor(n, &p.ids, nil)
	if err != nil {
		return api.NewError(api.ErrCodeInit, "stealing executor").Wrap(err)
	}
	p.mu.Lock()
	p.exec = exec
	p.mu.Unlock()
	p.log.Debug("stealing launched", "threads", n)
	return nil
}

func (p *Pool) ThreadCount() int           { return p.params.ThreadCount() }
func (p *Pool) SetThreadCount(n int) error { return p.params.SetThreadCount(n) }
func (p *Pool) ThreadID() int              { return p.ids.Current() }
func (p *Pool) ChunkSize() int             { return p.params.ChunkSize() }
func (p *Pool) SetChunkSize(n int) error   { return p.params.SetChunkSize(n) }

func (p *Pool) ScheduleRanges(total, threads int) []api.Range {
	return concurrency.Ranges(total, threads, p.params.ChunkSize())
}

// ParallelFor queues one task per range and helps run them until all finish.
func (p *Pool) ParallelFor(k api.Kernel, d api.Domain, innerNdim, operands, _ int) {
	p.mu.RLock()
	exec := p.exec
	p.mu.RUnlock()
	if exec == nil {
		panic(api.ErrNotInitialized)
	}

	active := p.params.ThreadCount()
	rs := p.ScheduleRanges(d.Count(), active)
	if len(rs) == 0 {
		return
	}

	var (
		trap      concurrency.PanicTrap
		remaining atomic.Int64
	)
	done := make(chan struct{})
	remaining.Store(int64(len(rs)))
	tasks := make([]concurrency.TaskFunc, len(rs))
	for i, r := range rs {
		tasks[i] = func() {
			trap.Run(p.ids.Current(), func() { concurrency.Invoke(k, d, r, innerNdim, operands) })
			if remaining.Add(-1) == 0 {
				close(done)
			}
		}
	}
	if err := exec.SubmitBatch(tasks, active); err != nil {
		panic(api.ErrClosed)
	}
	exec.HelpUntil(done)
	trap.Rethrow()
}

// Close stops the workers. It is idempotent.
func (p *Pool) Close() error {
	p.mu.RLock()
	exec := p.exec
	p.mu.RUnlock()
	if exec != nil {
		exec.Close()
		p.log.Debug("stealing closed")
	}
	return nil
}

var _ api.Backend = (*Pool)(nil)
