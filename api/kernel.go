// File: api/kernel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Kernel invocation boundary and iteration domain descriptors.

package api

import (
	"fmt"
	"unsafe"
)

// Kernel is a compiled single-threaded loop body.
//
// args holds one base pointer per operand, dims the loop extents (dims[0] is
// the outer, parallel extent), steps the per-operand byte strides (outer
// strides first, inner strides after) and data an opaque context.
type Kernel func(args []unsafe.Pointer, dims []int, steps []int, data unsafe.Pointer)

// Domain describes the iteration space of one dispatch call.
// The caller owns it and must keep the buffers alive until dispatch returns.
type Domain struct {
	Args  []unsafe.Pointer
	Dims  []int
	Steps []int
	Data  unsafe.Pointer
}

// Count returns the outer extent.
func (d Domain) Count() int {
	if len(d.Dims) == 0 {
		return 0
	}
	return d.Dims[0]
}

// Validate checks that d carries enough dims and steps for the given shape.
func (d Domain) Validate(innerNdim, operands int) error {
	switch {
	case innerNdim < 0:
		return Errorf(ErrCodeInvalidArgument, "inner dimension count must be non-negative, got %d", innerNdim)
	case operands < 0:
		return Errorf(ErrCodeInvalidArgument, "operand count must be non-negative, got %d", operands)
	case len(d.Dims) < 1+innerNdim:
		return Errorf(ErrCodeInvalidArgument, "domain has %d dims, need %d", len(d.Dims), 1+innerNdim)
	case len(d.Args) < operands:
		return Errorf(ErrCodeInvalidArgument, "domain has %d args, need %d", len(d.Args), operands)
	case len(d.Steps) < operands:
		return Errorf(ErrCodeInvalidArgument, "domain has %d steps, need %d", len(d.Steps), operands)
	case d.Dims[0] < 0:
		return Errorf(ErrCodeInvalidArgument, "outer extent must be non-negative, got %d", d.Dims[0])
	}
	return nil
}

// Range is a contiguous half-open slice [Start, End) of the outer dimension.
type Range struct {
	Start int
	End   int
}

// Len returns the number of elements in r.
func (r Range) Len() int { return r.End - r.Start }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// KernelPanic carries a panic raised by a kernel on a worker thread back to
// the dispatching goroutine.
type KernelPanic struct {
	Value    any
	Stack    []byte
	ThreadID int
}

func (p *KernelPanic) Error() string {
	return fmt.Sprintf("kernel panic on thread %d: %v", p.ThreadID, p.Value)
}

// Unwrap exposes the panic value when it is an error.
func (p *KernelPanic) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
