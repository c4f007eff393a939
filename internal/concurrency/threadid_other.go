//go:build !linux

// File: internal/concurrency/threadid_other.go
// Author: momentics <momentics@gmail.com>
//
// Without gettid the key is the goroutine id, which is stable for a worker
// because workers never hand their loop to another goroutine.

package concurrency

import "runtime"

func threadKey() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
