// File: internal/concurrency/trap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PanicTrap keeps workers alive when a kernel panics and hands the first
// panic back to the dispatching goroutine once the parallel section is over.

package concurrency

import (
	"runtime/debug"
	"sync"

	"github.com/momentics/threadlayer/api"
)

// PanicTrap records the first panic raised by any Run call.
type PanicTrap struct {
	once sync.Once
	p    *api.KernelPanic
}

// Run executes fn, recovering and recording a panic. threadID is attached
// to the recorded panic for diagnostics.
func (t *PanicTrap) Run(threadID int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			t.once.Do(func() {
				t.p = &api.KernelPanic{Value: r, Stack: stack, ThreadID: threadID}
			})
		}
	}()
	fn()
}

// Rethrow panics with the recorded *api.KernelPanic, if any.
// It must only be called after every Run has returned.
func (t *PanicTrap) Rethrow() {
	if t.p != nil {
		panic(t.p)
	}
}
