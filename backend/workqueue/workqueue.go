// File: backend/workqueue/workqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable FIFO threading layer. A fixed set of OS-locked workers drains a
// single shared queue. The layer is not thread-safe: it supports exactly one
// parallel section at a time and panics with api.ErrConcurrentLaunch when a
// second one starts, including a nested launch from inside a kernel.

package workqueue

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/backend"
	"github.com/momentics/threadlayer/internal/concurrency"
)

func init() {
	backend.Register(backend.Candidate{
		Name: backend.NameWorkqueue,
		Load: func(o backend.LoadOptions) (api.Backend, error) {
			return New(o.Logger), nil
		},
	})
}

// Pool is the workqueue threading layer.
type Pool struct {
	params concurrency.Params
	ids    concurrency.Workers
	log    *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	q      *queue.Queue // of func()
	closed bool
	wg     sync.WaitGroup

	busy atomic.Bool
}

// New creates an unlaunched pool.
func New(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{log: logger, q: queue.New()}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Pool) Name() string { return backend.NameWorkqueue }

// Launch starts n workers.
func (p *Pool) Launch(n int) error {
	if err := p.params.Launch(n); err != nil {
		return err
	}
	p.wg.Add(n)
	for id := 1; id <= n; id++ {
		go p.worker(id)
	}
	p.log.Debug("workqueue launched", "threads", n)
	return nil
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	leave := p.ids.Enter(id)
	defer leave()

	for {
		p.mu.Lock()
		for p.q.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.q.Length() == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.q.Remove().(func())
		p.mu.Unlock()
		fn()
	}
}

func (p *Pool) ThreadCount() int           { return p.params.ThreadCount() }
func (p *Pool) SetThreadCount(n int) error { return p.params.SetThreadCount(n) }
func (p *Pool) ThreadID() int              { return p.ids.Current() }
func (p *Pool) ChunkSize() int             { return p.params.ChunkSize() }
func (p *Pool) SetChunkSize(n int) error   { return p.params.SetChunkSize(n) }

func (p *Pool) ScheduleRanges(total, threads int) []api.Range {
	return concurrency.Ranges(total, threads, p.params.ChunkSize())
}

// ParallelFor enqueues one runner per participating worker; runners claim
// ranges in order until none remain.
func (p *Pool) ParallelFor(k api.Kernel, d api.Domain, innerNdim, operands, requested int) {
	if !p.busy.CompareAndSwap(false, true) {
		panic(api.ErrConcurrentLaunch)
	}
	defer p.busy.Store(false)

	if p.params.Launched() == 0 {
		panic(api.ErrNotInitialized)
	}
	active := p.params.Active(requested)
	rs := p.ScheduleRanges(d.Count(), active)
	if len(rs) == 0 {
		return
	}

	var (
		cursor atomic.Int64
		trap   concurrency.PanicTrap
		wg     sync.WaitGroup
	)
	run := func() {
		defer wg.Done()
		tid := p.ids.Current()
		for {
			i := int(cursor.Add(1) - 1)
			if i >= len(rs) {
				return
			}
			trap.Run(tid, func() { concurrency.Invoke(k, d, rs[i], innerNdim, operands) })
		}
	}

	runners := min(active, len(rs))
	wg.Add(runners)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic(api.ErrClosed)
	}
	for range runners {
		p.q.Add(run)
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	wg.Wait()
	trap.Rethrow()
}

// Close stops the workers after the queue drains. It is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debug("workqueue closed")
	return nil
}

var _ api.Backend = (*Pool)(nil)
