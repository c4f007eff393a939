//go:build unix

// File: internal/concurrency/proclock_unix.go
// Author: momentics <momentics@gmail.com>
//
// Advisory flock(2) on a lock file. The lock belongs to the open file
// description, so a forked child inheriting the descriptor shares the hold
// instead of deadlocking on it.

package concurrency

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type flockFile struct {
	fd int
}

func openFileLocker(path string) (fileLocker, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("proclock: open %s: %w", path, err)
	}
	return &flockFile{fd: fd}, nil
}

func (f *flockFile) lock() error {
	for {
		err := unix.Flock(f.fd, unix.LOCK_EX)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("proclock: flock: %w", err)
		}
		return nil
	}
}

func (f *flockFile) unlock() error {
	if err := unix.Flock(f.fd, unix.LOCK_UN); err != nil {
		return fmt.Errorf("proclock: unlock: %w", err)
	}
	return nil
}

func (f *flockFile) close() error {
	return unix.Close(f.fd)
}
