// File: internal/backendtest/backendtest.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conformance suite shared by every threading layer implementation.

package backendtest

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/threadlayer/api"
)

// Caps declares the optional guarantees a backend makes.
type Caps struct {
	// ThreadSafe backends accept dispatches from several goroutines at once.
	ThreadSafe bool
	// Nested backends accept a dispatch issued from inside a kernel.
	Nested bool
}

// Launched creates and launches a backend, closing it when t ends.
func Launched(t *testing.T, newBackend func() api.Backend, n int) api.Backend {
	t.Helper()
	b := newBackend()
	require.NoError(t, b.Launch(n))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// Counter is an int32 vector that kernels increment element-wise.
type Counter struct {
	cells []int32
}

// NewCounter allocates n cells.
func NewCounter(n int) *Counter {
	// keep one backing cell so the base pointer is valid for empty domains
	return &Counter{cells: make([]int32, n, max(n, 1))}
}

// Domain describes c as a one-operand, zero-inner-dim iteration domain.
func (c *Counter) Domain() api.Domain {
	return api.Domain{
		Args:  []unsafe.Pointer{unsafe.Pointer(unsafe.SliceData(c.cells))},
		Dims:  []int{len(c.cells)},
		Steps: []int{int(unsafe.Sizeof(int32(0)))},
	}
}

// Cells returns the current values.
func (c *Counter) Cells() []int32 { return c.cells }

// Increment is a kernel adding one to every element of its work item.
func Increment(args []unsafe.Pointer, dims []int, steps []int, _ unsafe.Pointer) {
	for i := range dims[0] {
		atomic.AddInt32((*int32)(unsafe.Add(args[0], i*steps[0])), 1)
	}
}

// AssertOnce checks that every cell was incremented exactly once.
func AssertOnce(t *testing.T, c *Counter) {
	t.Helper()
	for i, v := range c.Cells() {
		if v != 1 {
			assert.Failf(t, "element visited wrong number of times", "index %d visited %d times", i, v)
			return
		}
	}
}

// Run executes the conformance suite against fresh backends from newBackend.
func Run(t *testing.T, newBackend func() api.Backend, caps Caps) {
	t.Run("Lifecycle", func(t *testing.T) { testLifecycle(t, newBackend) })
	t.Run("ThreadIDOutsideWorkers", func(t *testing.T) {
		b := Launched(t, newBackend, 2)
		assert.Equal(t, api.NotWorkerThread, b.ThreadID())
	})
	t.Run("ScheduleRanges", func(t *testing.T) { testScheduleRanges(t, newBackend) })
	t.Run("CoversEveryElementOnce", func(t *testing.T) { testCoverage(t, newBackend) })
	t.Run("InnerDimensions", func(t *testing.T) { testInnerDims(t, newBackend) })
	t.Run("ThreadIDsInRange", func(t *testing.T) { testThreadIDs(t, newBackend) })
	t.Run("ThreadCountMask", func(t *testing.T) { testMask(t, newBackend) })
	t.Run("KernelPanic", func(t *testing.T) { testKernelPanic(t, newBackend) })
	if caps.Nested {
		t.Run("Nested", func(t *testing.T) { testNested(t, newBackend) })
	}
	if caps.ThreadSafe {
		t.Run("Concurrent", func(t *testing.T) { testConcurrent(t, newBackend) })
	}
}

func testLifecycle(t *testing.T, newBackend func() api.Backend) {
	b := newBackend()
	assert.ErrorIs(t, b.Launch(0), api.ErrConfig)
	require.NoError(t, b.Launch(4))
	assert.ErrorIs(t, b.Launch(4), api.ErrInit)
	assert.Equal(t, 4, b.ThreadCount())

	assert.ErrorIs(t, b.SetThreadCount(0), api.ErrOutOfRange)
	assert.ErrorIs(t, b.SetThreadCount(5), api.ErrOutOfRange)
	require.NoError(t, b.SetThreadCount(1))
	assert.Equal(t, 1, b.ThreadCount())
	require.NoError(t, b.SetThreadCount(4))

	assert.Equal(t, 0, b.ChunkSize())
	assert.ErrorIs(t, b.SetChunkSize(-1), api.ErrOutOfRange)
	require.NoError(t, b.SetChunkSize(16))
	assert.Equal(t, 16, b.ChunkSize())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func testScheduleRanges(t *testing.T, newBackend func() api.Backend) {
	b := Launched(t, newBackend, 4)
	assert.Equal(t, []api.Range{{Start: 0, End: 3}, {Start: 3, End: 6}, {Start: 6, End: 8}, {Start: 8, End: 10}},
		b.ScheduleRanges(10, 4))
	assert.Empty(t, b.ScheduleRanges(0, 4))

	require.NoError(t, b.SetChunkSize(4))
	assert.Equal(t, []api.Range{{Start: 0, End: 4}, {Start: 4, End: 8}, {Start: 8, End: 10}},
		b.ScheduleRanges(10, 4))
}

func testCoverage(t *testing.T, newBackend func() api.Backend) {
	b := Launched(t, newBackend, 4)
	for _, chunk := range []int{0, 1, 4, 7} {
		require.NoError(t, b.SetChunkSize(chunk))
		for _, n := range []int{0, 1, 3, 4, 10, 1000} {
			c := NewCounter(n)
			b.ParallelFor(Increment, c.Domain(), 0, 1, 4)
			AssertOnce(t, c)
		}
	}
}

// testInnerDims fills a rows x cols matrix, one outer row per element of the
// outer dimension, so inner extents and strides must survive narrowing.
func testInnerDims(t *testing.T, newBackend func() api.Backend) {
	b := Launched(t, newBackend, 3)
	const rows, cols = 17, 5
	m := make([]int32, rows*cols)
	elem := int(unsafe.Sizeof(int32(0)))
	d := api.Domain{
		Args:  []unsafe.Pointer{unsafe.Pointer(&m[0])},
		Dims:  []int{rows, cols},
		Steps: []int{cols * elem, elem},
	}
	b.ParallelFor(func(args []unsafe.Pointer, dims []int, steps []int, _ unsafe.Pointer) {
		for r := range dims[0] {
			for c := range dims[1] {
				atomic.AddInt32((*int32)(unsafe.Add(args[0], r*steps[0]+c*steps[1])), 1)
			}
		}
	}, d, 1, 1, 3)
	for i, v := range m {
		require.Equal(t, int32(1), v, "cell %d", i)
	}
}

func testThreadIDs(t *testing.T, newBackend func() api.Backend) {
	b := Launched(t, newBackend, 4)
	const n = 64
	ids := make([]int32, n)
	idsDomain := api.Domain{
		Args:  []unsafe.Pointer{unsafe.Pointer(&ids[0])},
		Dims:  []int{n},
		Steps: []int{int(unsafe.Sizeof(int32(0)))},
	}
	require.NoError(t, b.SetChunkSize(1))
	b.ParallelFor(func(args []unsafe.Pointer, dims []int, steps []int, _ unsafe.Pointer) {
		for i := range dims[0] {
			*(*int32)(unsafe.Add(args[0], i*steps[0])) = int32(b.ThreadID())
		}
	}, idsDomain, 0, 1, 4)
	for _, id := range ids {
		assert.GreaterOrEqual(t, id, int32(api.NotWorkerThread))
		assert.LessOrEqual(t, id, int32(4))
	}
}

func testMask(t *testing.T, newBackend func() api.Backend) {
	b := Launched(t, newBackend, 4)
	require.NoError(t, b.SetThreadCount(1))

	// first dispatch settles the mask
	b.ParallelFor(Increment, NewCounter(8).Domain(), 0, 1, 1)

	var mu sync.Mutex
	workers := map[int]bool{}
	c := NewCounter(256)
	b.ParallelFor(func(args []unsafe.Pointer, dims []int, steps []int, data unsafe.Pointer) {
		if id := b.ThreadID(); id != api.NotWorkerThread {
			mu.Lock()
			workers[id] = true
			mu.Unlock()
		}
		Increment(args, dims, steps, data)
	}, c.Domain(), 0, 1, 4)
	AssertOnce(t, c)
	assert.LessOrEqual(t, len(workers), 1, "workers used: %v", workers)
}

func testKernelPanic(t *testing.T, newBackend func() api.Backend) {
	b := Launched(t, newBackend, 4)
	c := NewCounter(40)
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "kernel panic was swallowed")
			kp, ok := r.(*api.KernelPanic)
			require.True(t, ok, "unexpected panic value %T", r)
			assert.Equal(t, "boom", kp.Value)
		}()
		b.ParallelFor(func(args []unsafe.Pointer, dims []int, steps []int, data unsafe.Pointer) {
			panic("boom")
		}, c.Domain(), 0, 1, 4)
	}()

	// the pool survives
	c = NewCounter(40)
	b.ParallelFor(Increment, c.Domain(), 0, 1, 4)
	AssertOnce(t, c)
}

func testNested(t *testing.T, newBackend func() api.Backend) {
	b := Launched(t, newBackend, 4)
	const outer, inner = 8, 50
	counters := make([]*Counter, outer)
	for i := range counters {
		counters[i] = NewCounter(inner)
	}
	idx := make([]int32, outer)
	for i := range idx {
		idx[i] = int32(i)
	}
	d := api.Domain{
		Args:  []unsafe.Pointer{unsafe.Pointer(&idx[0])},
		Dims:  []int{outer},
		Steps: []int{int(unsafe.Sizeof(int32(0)))},
	}
	b.ParallelFor(func(args []unsafe.Pointer, dims []int, steps []int, _ unsafe.Pointer) {
		for i := range dims[0] {
			k := *(*int32)(unsafe.Add(args[0], i*steps[0]))
			b.ParallelFor(Increment, counters[k].Domain(), 0, 1, 4)
		}
	}, d, 0, 1, 4)
	for _, c := range counters {
		AssertOnce(t, c)
	}
}

func testConcurrent(t *testing.T, newBackend func() api.Backend) {
	b := Launched(t, newBackend, 4)
	counters := make([]*Counter, 8)
	var wg sync.WaitGroup
	for i := range counters {
		counters[i] = NewCounter(500)
		wg.Add(1)
		go func(c *Counter) {
			defer wg.Done()
			for range 10 {
				b.ParallelFor(Increment, c.Domain(), 0, 1, 4)
			}
		}(counters[i])
	}
	wg.Wait()
	for _, c := range counters {
		for i, v := range c.Cells() {
			require.Equal(t, int32(10), v, "cell %d", i)
		}
	}
}
