// File: params.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Execution parameters. The values live in the backend; these methods add
// lazy initialization and route writes through the control config store so
// the backend and the control snapshot change together.

package threadlayer

import (
	"github.com/momentics/threadlayer/api"
)

// SetNumThreads masks the pool down to n active threads, 1 <= n <= launched.
func (l *Layer) SetNumThreads(n int) error {
	if _, err := l.ready(); err != nil {
		return err
	}
	return l.control.SetConfig(map[string]any{keyNumThreads: n})
}

// NumThreads returns the active thread count. A non-positive value reported
// by the backend is an internal error.
func (l *Layer) NumThreads() (int, error) {
	be, err := l.ready()
	if err != nil {
		return 0, err
	}
	n := be.ThreadCount()
	if n <= 0 {
		return 0, api.NewError(api.ErrCodeInternal, "Invalid number of threads. This likely indicates a bug.").
			WithContext("thread_id", be.ThreadID()).
			WithContext("num_threads", n)
	}
	return n, nil
}

// SetChunkSize sets the scheduling granularity, 0 for an even split.
func (l *Layer) SetChunkSize(n int) error {
	if _, err := l.ready(); err != nil {
		return err
	}
	return l.control.SetConfig(map[string]any{keyChunkSize: n})
}

// ChunkSize returns the current scheduling granularity.
func (l *Layer) ChunkSize() (int, error) {
	be, err := l.ready()
	if err != nil {
		return 0, err
	}
	return be.ChunkSize(), nil
}

// LaunchedThreads returns the number of workers launched at initialization.
func (l *Layer) LaunchedThreads() (int, error) {
	if _, err := l.ready(); err != nil {
		return 0, err
	}
	return l.launched, nil
}

// ThreadID identifies the calling worker of the selected backend, 0 for any
// other goroutine. It never triggers initialization.
func (l *Layer) ThreadID() int {
	if !l.Ready() {
		return api.NotWorkerThread
	}
	return l.be.ThreadID()
}
