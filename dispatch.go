// File: dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatch entry point. The host execution token is released for the whole
// parallel section and reacquired on every exit path, including a kernel
// panic propagating out of the backend. A dispatch that finds the Layer
// closed once the token is released returns an ErrCodeClosed error.

package threadlayer

import (
	"time"

	"github.com/momentics/threadlayer/api"
)

// ParallelFor runs k over d on the selected backend and blocks until every
// work item completes. innerNdim counts the inner dimensions after Dims[0];
// operands counts the leading Args and Steps entries to offset per work item.
//
// A panic raised by a kernel is re-raised here as *api.KernelPanic once the
// other work items have finished.
func (l *Layer) ParallelFor(k api.Kernel, d api.Domain, innerNdim, operands int) error {
	if k == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "kernel must not be nil")
	}
	be, err := l.ready()
	if err != nil {
		return err
	}
	if err := d.Validate(innerNdim, operands); err != nil {
		return err
	}

	threads := be.ThreadCount()
	items := workItems(d.Count(), threads, be.ChunkSize())
	start := time.Now()

	l.host.Release()
	defer l.host.Reacquire()
	if !l.enter() {
		return closedError()
	}
	defer l.leave()
	be.ParallelFor(k, d, innerNdim, operands, threads)

	l.recordDispatch(items, time.Since(start))
	return nil
}

// ScheduleRanges returns the partition a dispatch over total elements would
// use with threads active threads; threads <= 0 means the current count.
func (l *Layer) ScheduleRanges(total, threads int) ([]api.Range, error) {
	be, err := l.ready()
	if err != nil {
		return nil, err
	}
	if total < 0 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "outer extent must be non-negative, got %d", total)
	}
	if threads <= 0 {
		threads = be.ThreadCount()
	}
	return be.ScheduleRanges(total, threads), nil
}

func workItems(total, threads, chunk int) int {
	switch {
	case total <= 0:
		return 0
	case chunk > 0:
		return (total + chunk - 1) / chunk
	default:
		return min(max(threads, 1), total)
	}
}
