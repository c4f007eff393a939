// File: internal/concurrency/executor.go
// Package concurrency implements a work-stealing task executor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker threads using per-worker lock-free
// rings and a global overflow queue. Idle workers steal from their peers.
// Goroutines waiting for a batch help execute queued tasks, so a task may
// itself submit and wait for a nested batch without deadlocking the pool.

package concurrency

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/threadlayer/api"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

type task struct {
	fn TaskFunc
}

// ringCapacity bounds each worker's local ring; extra tasks overflow to the
// global queue.
const ringCapacity = 1024

// Executor manages a fixed pool of worker threads.
type Executor struct {
	workers []*worker
	ids     *Workers

	submitMu sync.Mutex // serializes producers of the local rings
	next     int        // round-robin cursor, guarded by submitMu

	globalMu    sync.Mutex
	globalQueue *queue.Queue // overflow tasks, guarded by globalMu

	active atomic.Int64 // workers allowed to steal, set by the latest batch

	closeCh chan struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup

	onStart func(id int) // runs on each worker thread before its loop
}

// NewExecutor starts numWorkers worker threads. Worker ids are 1..numWorkers
// and are registered in ids. onStart, if non-nil, runs on each worker's
// locked thread before it accepts tasks.
func NewExecutor(numWorkers int, ids *Workers, onStart func(id int)) (*Executor, error) {
	if numWorkers <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	e := &Executor{
		ids:         ids,
		globalQueue: queue.New(),
		closeCh:     make(chan struct{}),
		onStart:     onStart,
	}
	e.workers = make([]*worker, numWorkers)
	for i := range e.workers {
		e.workers[i] = &worker{
			id:       i + 1,
			executor: e,
			local:    NewRingBuffer[task](ringCapacity),
			wake:     make(chan struct{}, 1),
		}
	}
	e.active.Store(int64(numWorkers))
	e.wg.Add(numWorkers)
	for _, w := range e.workers {
		go w.run()
	}
	return e, nil
}

// NumWorkers returns the launched worker count.
func (e *Executor) NumWorkers() int {
	return len(e.workers)
}

// SubmitBatch distributes tasks round-robin over the local rings of the
// first active workers and wakes each of them. Workers with an id above
// active are not woken and stop stealing until a later batch raises the
// limit.
func (e *Executor) SubmitBatch(tasks []TaskFunc, active int) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	active = min(max(active, 1), len(e.workers))
	e.active.Store(int64(active))

	e.submitMu.Lock()
	for _, fn := range tasks {
		w := e.workers[e.next%active]
		e.next++
		t := &task{fn: fn}
		if !w.local.Enqueue(t) {
			e.globalMu.Lock()
			e.globalQueue.Add(t)
			e.globalMu.Unlock()
		}
	}
	e.submitMu.Unlock()

	if len(tasks) == 0 {
		return nil
	}
	for _, w := range e.workers[:active] {
		select {
		case w.wake <- struct{}{}:
		default:
			// wake-up already pending
		}
	}
	return nil
}

// HelpUntil executes queued tasks on the calling goroutine until done is
// closed or no task is left, then blocks until done is closed.
func (e *Executor) HelpUntil(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		t, ok := e.steal(0)
		if !ok {
			break
		}
		t.fn()
	}
	<-done
}

// Close shuts down the executor and waits for workers to exit.
// Tasks still queued are dropped.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.closeCh)
		e.wg.Wait()
	}
}

// steal takes a task from any worker other than self, then from the global
// queue. self is 0 for non-worker callers.
func (e *Executor) steal(self int) (*task, bool) {
	n := len(e.workers)
	for i := range n {
		w := e.workers[(self+i)%n]
		if w.id == self {
			continue
		}
		if t, ok := w.local.Dequeue(); ok {
			return t, true
		}
	}
	e.globalMu.Lock()
	defer e.globalMu.Unlock()
	if e.globalQueue.Length() == 0 {
		return nil, false
	}
	return e.globalQueue.Remove().(*task), true
}

// worker runs tasks on one locked OS thread.
type worker struct {
	id       int
	executor *Executor
	local    api.Ring[*task]
	wake     chan struct{} // one pending wake-up at most
}

func (w *worker) run() {
	e := w.executor
	defer e.wg.Done()
	leave := e.ids.Enter(w.id)
	defer leave()
	if e.onStart != nil {
		e.onStart(w.id)
	}
	for {
		if e.closed.Load() {
			return
		}
		if t, ok := w.local.Dequeue(); ok {
			t.fn()
			continue
		}
		if w.id <= int(e.active.Load()) {
			if t, ok := e.steal(w.id); ok {
				t.fn()
				continue
			}
		}
		select {
		case <-w.wake:
		case <-e.closeCh:
			return
		}
	}
}
