// File: internal/concurrency/proclock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ProcessLock serializes a critical section across processes sharing a lock
// file. Inside one process the hold is reference counted: the first Lock
// takes the file lock, the last Unlock drops it, so any number of goroutines
// may hold it at once and an in-process mutex taken after it does the
// ordinary serialization.

package concurrency

import "sync"

// Locker is a scoped lock whose acquisition may fail.
type Locker interface {
	Lock() error
	Unlock() error
}

// NopLocker is the degraded outer guard used when no process lock applies.
type NopLocker struct{}

func (NopLocker) Lock() error   { return nil }
func (NopLocker) Unlock() error { return nil }

// fileLocker is implemented per platform.
type fileLocker interface {
	lock() error
	unlock() error
	close() error
}

// ProcessLock is a reentrant, cross-process lock backed by a lock file.
type ProcessLock struct {
	mu    sync.Mutex
	cond  *sync.Cond
	holds int
	busy  bool // a goroutine is taking or dropping the file lock
	file  fileLocker
}

// NewProcessLock opens (creating if needed) the lock file at path.
func NewProcessLock(path string) (*ProcessLock, error) {
	f, err := openFileLocker(path)
	if err != nil {
		return nil, err
	}
	l := &ProcessLock{file: f}
	l.cond = sync.NewCond(&l.mu)
	return l, nil
}

// Lock takes a hold, acquiring the file lock if this is the first one.
func (l *ProcessLock) Lock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.busy {
		l.cond.Wait()
	}
	if l.holds > 0 {
		l.holds++
		return nil
	}
	l.busy = true
	l.mu.Unlock()
	err := l.file.lock()
	l.mu.Lock()
	l.busy = false
	l.cond.Broadcast()
	if err != nil {
		return err
	}
	l.holds = 1
	return nil
}

// Unlock drops a hold, releasing the file lock with the last one.
func (l *ProcessLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.busy {
		l.cond.Wait()
	}
	if l.holds == 0 {
		return nil
	}
	l.holds--
	if l.holds > 0 {
		return nil
	}
	l.busy = true
	l.mu.Unlock()
	err := l.file.unlock()
	l.mu.Lock()
	l.busy = false
	l.cond.Broadcast()
	return err
}

// Holds returns the number of in-process holders.
func (l *ProcessLock) Holds() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holds
}

// Close releases the lock file.
func (l *ProcessLock) Close() error {
	return l.file.close()
}
