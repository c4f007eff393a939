//go:build !linux

// File: internal/concurrency/affinity_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without thread affinity support.

package concurrency

func platformAllowedCPUs() ([]int, error) { return nil, ErrAffinityNotSupported }

func platformPinCurrentThread(cpuID int) error { return ErrAffinityNotSupported }

func platformUnpinCurrentThread() error { return nil }
