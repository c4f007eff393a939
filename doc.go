// Package threadlayer
// Author: momentics <momentics@gmail.com>
//
// Parallel dispatch core for fixed-shape numeric kernels.
//
// A kernel is a single-threaded loop body over flat buffers. threadlayer
// splits the outer iteration dimension into contiguous ranges and runs the
// kernel once per range on a bounded pool of worker threads. The pool comes
// from exactly one interchangeable threading layer, selected on first use:
//   - stealing: work-stealing pool, thread-safe and fork-safe
//   - team: static schedule over OS-locked, optionally CPU-pinned workers
//   - workqueue: portable FIFO pool, one parallel section at a time
//
// The selection request is a layer name or a safety class (threadsafe,
// forksafe, safe, default). Configuration comes from DefaultConfig, a TOML
// file and THREADLAYER_* environment variables, see FromEnv.
//
// Typical use goes through a Layer:
//
//	cfg, err := threadlayer.FromEnv()
//	layer, err := threadlayer.New(cfg, threadlayer.WithLogger(logger))
//	defer layer.Shutdown()
//	err = layer.ParallelFor(kernel, domain, innerNdim, operands)
//
// or through the package-level functions backed by a process-wide default
// Layer.
package threadlayer
