//go:build linux

// File: internal/concurrency/threadid_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux thread keys are kernel thread ids. A goroutine locked to its thread
// is the only goroutine that thread ever runs, so the key is unambiguous.

package concurrency

import "golang.org/x/sys/unix"

func threadKey() uint64 {
	return uint64(unix.Gettid())
}
