// File: internal/concurrency/narrow.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Work item construction: a Domain narrowed to one range of the outer
// dimension, with operand base pointers advanced to the range start.

package concurrency

import (
	"unsafe"

	"github.com/momentics/threadlayer/api"
)

// Narrow returns the work item of d covering r.
// Inner dims are copied, steps are shared and must not be written by kernels.
func Narrow(d api.Domain, r api.Range, innerNdim, operands int) api.Domain {
	dims := make([]int, 1+innerNdim)
	dims[0] = r.Len()
	copy(dims[1:], d.Dims[1:1+innerNdim])

	args := make([]unsafe.Pointer, operands)
	for j := range args {
		args[j] = unsafe.Add(d.Args[j], r.Start*d.Steps[j])
	}
	return api.Domain{Args: args, Dims: dims, Steps: d.Steps, Data: d.Data}
}

// Invoke runs k over the work item of d covering r.
func Invoke(k api.Kernel, d api.Domain, r api.Range, innerNdim, operands int) {
	item := Narrow(d, r, innerNdim, operands)
	k(item.Args, item.Dims, item.Steps, item.Data)
}
