package ops

import (
	"golang.org/x/sync/errgroup"
)

// blockSize is the fixed partition unit for reductions and the minimum
// range handed to a worker for elementwise kernels.
const blockSize = 4096

// Pool runs data-parallel kernels over index ranges with a fixed number of
// workers.
//
// A Pool holds no goroutines between calls; each call fans out on an
// errgroup limited to the worker count and waits. Kernels given to a Pool
// must only touch indices in their own range.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker count. Values below 1 are
// treated as 1.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// Range calls fn over contiguous sub-ranges [lo, hi) covering [0, n).
// Each worker receives at most one range, and small inputs use fewer
// workers so that ranges stay near blockSize or larger. Runs inline when
// one worker suffices.
func (p *Pool) Range(n int, fn func(lo, hi int)) {
	split(n, min(p.Workers(), NumBlocks(n)), fn)
}

// Blocks calls fn once per fixed-size block of [0, n), with at most
// Workers blocks in flight. fn receives the block index and its bounds.
//
// Block boundaries depend only on n, never on the worker count.
func (p *Pool) Blocks(n int, fn func(block, lo, hi int)) {
	nblocks := NumBlocks(n)
	if nblocks == 0 {
		return
	}
	if p.Workers() == 1 || nblocks == 1 {
		for b := 0; b < nblocks; b++ {
			lo := b * blockSize
			fn(b, lo, min(lo+blockSize, n))
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(p.Workers())
	for b := 0; b < nblocks; b++ {
		lo := b * blockSize
		hi := min(lo+blockSize, n)
		g.Go(func() error {
			fn(b, lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// split partitions [0, n) into at most workers contiguous ranges and runs
// them concurrently.
func split(n, workers int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// NumBlocks returns the number of fixed-size blocks covering n elements.
func NumBlocks(n int) int {
	return (n + blockSize - 1) / blockSize
}

// Map applies f to every element of data in place.
func (p *Pool) Map(data []float64, f func(float64) float64) {
	p.Range(len(data), func(lo, hi int) {
		part := data[lo:hi]
		for i, v := range part {
			part[i] = f(v)
		}
	})
}
