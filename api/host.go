// Package api
// Author: momentics
//
// Host runtime boundary around parallel sections.

package api

// HostLock is a single-writer execution token owned by an embedding host.
// The dispatcher releases it before entering a parallel section and
// reacquires it afterwards, whatever the kernels do.
type HostLock interface {
	Release()
	Reacquire()
}

// NopHostLock is used when the embedding host requires no token.
type NopHostLock struct{}

func (NopHostLock) Release()   {}
func (NopHostLock) Reacquire() {}
