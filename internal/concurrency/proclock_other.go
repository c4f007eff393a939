//go:build !unix

// File: internal/concurrency/proclock_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without flock; callers fall back to NopLocker.

package concurrency

import "errors"

func openFileLocker(path string) (fileLocker, error) {
	return nil, errors.New("proclock: file locks not supported on this platform")
}
