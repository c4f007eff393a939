// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives shared by the threading layer backends: range
// scheduling, work item narrowing, execution parameters, worker identity,
// CPU pinning, the work-stealing executor and the cross-process init lock.
//
// Platform-specific pieces are split by build tags (Linux uses x/sys/unix
// for gettid, sched_setaffinity and flock; other platforms get stubs).
package concurrency
