// File: internal/concurrency/threadid.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker identity. Workers lock their goroutine to an OS thread and register
// the thread key under their worker id; ThreadID lookups resolve the calling
// thread back to that id.

package concurrency

import (
	"runtime"
	"sync"

	"github.com/momentics/threadlayer/api"
)

// Workers maps OS threads to worker ids for one backend.
type Workers struct {
	ids sync.Map // threadKey -> int
}

// Enter locks the calling goroutine to its OS thread and records it as
// worker id. The returned func undoes both.
func (w *Workers) Enter(id int) (leave func()) {
	runtime.LockOSThread()
	key := threadKey()
	w.ids.Store(key, id)
	return func() {
		w.ids.Delete(key)
		runtime.UnlockOSThread()
	}
}

// Current returns the worker id of the calling thread, or
// api.NotWorkerThread.
func (w *Workers) Current() int {
	if v, ok := w.ids.Load(threadKey()); ok {
		return v.(int)
	}
	return api.NotWorkerThread
}
