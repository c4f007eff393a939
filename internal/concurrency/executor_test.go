package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/threadlayer/api"
)

// runBatch submits n tasks and helps until they finish.
func runBatch(e *Executor, n, active int, fn func(i int)) error {
	var remaining atomic.Int64
	remaining.Store(int64(n))
	done := make(chan struct{})
	tasks := make([]TaskFunc, n)
	for i := range tasks {
		tasks[i] = func() {
			fn(i)
			if remaining.Add(-1) == 0 {
				close(done)
			}
		}
	}
	if err := e.SubmitBatch(tasks, active); err != nil {
		return err
	}
	e.HelpUntil(done)
	return nil
}

func TestExecutor_RunsEveryTask(t *testing.T) {
	var ids Workers
	e, err := NewExecutor(4, &ids, nil)
	require.NoError(t, err)
	defer e.Close()

	seen := make([]int32, 5000)
	require.NoError(t, runBatch(e, len(seen), 4, func(i int) { atomic.AddInt32(&seen[i], 1) }))
	for i, v := range seen {
		require.Equal(t, int32(1), v, "task %d", i)
	}
}

func TestExecutor_OverflowToGlobalQueue(t *testing.T) {
	var ids Workers
	e, err := NewExecutor(1, &ids, nil)
	require.NoError(t, err)
	defer e.Close()

	var count atomic.Int64
	require.NoError(t, runBatch(e, ringCapacity*3, 1, func(int) { count.Add(1) }))
	assert.Equal(t, int64(ringCapacity*3), count.Load())
}

func TestExecutor_NestedBatches(t *testing.T) {
	var ids Workers
	e, err := NewExecutor(2, &ids, nil)
	require.NoError(t, err)
	defer e.Close()

	var inner atomic.Int64
	finished := make(chan struct{})
	go func() {
		_ = runBatch(e, 8, 2, func(int) {
			_ = runBatch(e, 8, 2, func(int) { inner.Add(1) })
		})
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("nested batches deadlocked")
	}
	assert.Equal(t, int64(64), inner.Load())
}

func TestExecutor_WorkerIdentity(t *testing.T) {
	var ids Workers
	var started sync.Map
	e, err := NewExecutor(3, &ids, func(id int) { started.Store(id, true) })
	require.NoError(t, err)
	defer e.Close()

	var mu sync.Mutex
	seen := map[int]bool{}
	err = runBatch(e, 300, 3, func(int) {
		id := ids.Current()
		mu.Lock()
		seen[id] = true
		mu.Unlock()
		time.Sleep(50 * time.Microsecond)
	})
	require.NoError(t, err)
	for id := range seen {
		// the helping caller reports NotWorkerThread
		assert.True(t, id == api.NotWorkerThread || (id >= 1 && id <= 3), "unexpected id %d", id)
	}
	require.Eventually(t, func() bool {
		for id := 1; id <= 3; id++ {
			if _, ok := started.Load(id); !ok {
				return false
			}
		}
		return true
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, api.NotWorkerThread, ids.Current())
}

func TestExecutor_ActiveMasksStealers(t *testing.T) {
	var ids Workers
	e, err := NewExecutor(4, &ids, nil)
	require.NoError(t, err)
	defer e.Close()

	// lowers the limit before the measured batch
	require.NoError(t, runBatch(e, 8, 2, func(int) {}))

	var mu sync.Mutex
	seen := map[int]bool{}
	err = runBatch(e, 200, 2, func(int) {
		id := ids.Current()
		mu.Lock()
		seen[id] = true
		mu.Unlock()
		time.Sleep(20 * time.Microsecond)
	})
	require.NoError(t, err)
	for id := range seen {
		assert.LessOrEqual(t, id, 2, "worker %d ran while masked", id)
	}
}

// Only the active workers get wake-ups, so a masked pool still runs its
// batch on every active worker without the submitter helping.
func TestExecutor_WakesEveryActiveWorker(t *testing.T) {
	var ids Workers
	e, err := NewExecutor(4, &ids, nil)
	require.NoError(t, err)
	defer e.Close()

	// settle the mask first
	require.NoError(t, runBatch(e, 4, 2, func(int) {}))

	var (
		started sync.WaitGroup
		mu      sync.Mutex
		workers = map[int]bool{}
	)
	started.Add(2)
	done := make(chan struct{}, 2)
	task := func() {
		mu.Lock()
		workers[ids.Current()] = true
		mu.Unlock()
		started.Done()
		started.Wait() // both tasks must run at the same time
		done <- struct{}{}
	}
	require.NoError(t, e.SubmitBatch([]TaskFunc{task, task}, 2))

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("active worker was not woken")
		}
	}
	assert.Equal(t, map[int]bool{1: true, 2: true}, workers)
}

func TestExecutor_Close(t *testing.T) {
	var ids Workers
	e, err := NewExecutor(2, &ids, nil)
	require.NoError(t, err)
	e.Close()
	e.Close()
	assert.ErrorIs(t, e.SubmitBatch([]TaskFunc{func() {}}, 1), ErrExecutorClosed)
}

func TestExecutor_InvalidWorkerCount(t *testing.T) {
	_, err := NewExecutor(0, &Workers{}, nil)
	assert.ErrorIs(t, err, ErrInvalidWorkerCount)
}
