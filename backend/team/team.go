//go:build !threadlayer_noteam

// File: backend/team/team.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Static-schedule threading layer. Each worker owns a job channel and runs on
// its own locked OS thread, optionally pinned to one CPU. Range i of a
// dispatch always goes to slot i mod team, so a given shape lands on the
// same threads every time. A dispatch issued from one of the team's own
// workers runs inline on that worker.

package team

import (
	"log/slog"
	"sync"

	"github.com/momentics/threadlayer/adapters"
	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/backend"
	"github.com/momentics/threadlayer/internal/concurrency"
)

// jobBacklog bounds the pending jobs per worker before dispatchers block.
const jobBacklog = 64

func init() {
	backend.Register(backend.Candidate{
		Name: backend.NameTeam,
		Load: func(o backend.LoadOptions) (api.Backend, error) {
			return New(o.Logger, o.PinThreads), nil
		},
	})
}

type member struct {
	id   int
	jobs chan func()
}

// Team is the static-schedule threading layer.
type Team struct {
	params concurrency.Params
	ids    concurrency.Workers
	log    *slog.Logger
	pin    bool

	mu      sync.RWMutex // guards members against Close
	members []*member
	closed  bool
	wg      sync.WaitGroup
}

// New creates an unlaunched team. With pin set, workers are bound
// round-robin to the CPUs the process may use.
func New(logger *slog.Logger, pin bool) *Team {
	if logger == nil {
		logger = slog.Default()
	}
	return &Team{log: logger, pin: pin}
}

func (t *Team) Name() string { return backend.NameTeam }

// Launch starts n workers.
func (t *Team) Launch(n int) error {
	if err := t.params.Launch(n); err != nil {
		return err
	}

	var cpus []int
	if t.pin {
		var err error
		if cpus, err = concurrency.AllowedCPUs(); err != nil {
			t.log.Warn("team workers will not be pinned", "error", err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.members = make([]*member, n)
	t.wg.Add(n)
	for i := range t.members {
		m := &member{id: i + 1, jobs: make(chan func(), jobBacklog)}
		t.members[i] = m
		cpu := -1
		if len(cpus) > 0 {
			cpu = cpus[i%len(cpus)]
		}
		go t.run(m, cpu)
	}
	t.log.Debug("team launched", "threads", n, "pinned", len(cpus) > 0)
	return nil
}

// run is the worker loop. A negative cpu leaves the thread unpinned.
func (t *Team) run(m *member, cpu int) {
	defer t.wg.Done()
	leave := t.ids.Enter(m.id)
	defer leave()

	if cpu >= 0 {
		aff := adapters.NewAffinityAdapter()
		if err := aff.Pin(cpu); err != nil {
			t.log.Warn("team worker not pinned", "worker", m.id, "cpu", cpu, "error", err)
		} else {
			defer aff.Unpin()
		}
	}

	for job := range m.jobs {
		job()
	}
}

func (t *Team) ThreadCount() int           { return t.params.ThreadCount() }
func (t *Team) SetThreadCount(n int) error { return t.params.SetThreadCount(n) }
func (t *Team) ThreadID() int              { return t.ids.Current() }
func (t *Team) ChunkSize() int             { return t.params.ChunkSize() }
func (t *Team) SetChunkSize(n int) error   { return t.params.SetChunkSize(n) }

func (t *Team) ScheduleRanges(total, threads int) []api.Range {
	return concurrency.Ranges(total, threads, t.params.ChunkSize())
}

// ParallelFor splits d statically over min(active, ranges) workers.
func (t *Team) ParallelFor(k api.Kernel, d api.Domain, innerNdim, operands, requested int) {
	if t.params.Launched() == 0 {
		panic(api.ErrNotInitialized)
	}
	active := t.params.Active(requested)
	rs := t.ScheduleRanges(d.Count(), active)
	if len(rs) == 0 {
		return
	}

	var trap concurrency.PanicTrap
	if tid := t.ids.Current(); tid != api.NotWorkerThread {
		for _, r := range rs {
			trap.Run(tid, func() { concurrency.Invoke(k, d, r, innerNdim, operands) })
		}
		trap.Rethrow()
		return
	}

	size := min(active, len(rs))
	var wg sync.WaitGroup
	wg.Add(size)

	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		panic(api.ErrClosed)
	}
	for slot := range size {
		m := t.members[slot]
		m.jobs <- func() {
			defer wg.Done()
			for i := slot; i < len(rs); i += size {
				trap.Run(m.id, func() { concurrency.Invoke(k, d, rs[i], innerNdim, operands) })
			}
		}
	}
	t.mu.RUnlock()

	wg.Wait()
	trap.Rethrow()
}

// Close stops the workers once their pending jobs finish. It is idempotent.
func (t *Team) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	for _, m := range t.members {
		close(m.jobs)
	}
	t.mu.Unlock()

	t.wg.Wait()
	t.log.Debug("team closed")
	return nil
}

var _ api.Backend = (*Team)(nil)
