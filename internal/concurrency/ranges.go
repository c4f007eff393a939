// File: internal/concurrency/ranges.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Range scheduler: partitions the outer iteration dimension into contiguous,
// ordered, non-overlapping ranges.

package concurrency

import "github.com/momentics/threadlayer/api"

// EvenRanges splits [0, total) into min(threads, total) ranges whose sizes
// differ by at most one; the first total%threads ranges get the extra element.
func EvenRanges(total, threads int) []api.Range {
	if total <= 0 {
		return nil
	}
	if threads < 1 {
		threads = 1
	}
	n := min(threads, total)
	base, rem := total/n, total%n
	out := make([]api.Range, n)
	start := 0
	for i := range out {
		size := base
		if i < rem {
			size++
		}
		out[i] = api.Range{Start: start, End: start + size}
		start += size
	}
	return out
}

// ChunkRanges splits [0, total) into ceil(total/chunk) ranges of chunk
// elements, the last one truncated.
func ChunkRanges(total, chunk int) []api.Range {
	if total <= 0 || chunk <= 0 {
		return nil
	}
	out := make([]api.Range, 0, (total+chunk-1)/chunk)
	for start := 0; start < total; start += chunk {
		out = append(out, api.Range{Start: start, End: min(start+chunk, total)})
	}
	return out
}

// Ranges applies the dispatch policy: fixed-size chunks when chunk > 0,
// an even split across threads otherwise.
func Ranges(total, threads, chunk int) []api.Range {
	if chunk > 0 {
		return ChunkRanges(total, chunk)
	}
	return EvenRanges(total, threads)
}
