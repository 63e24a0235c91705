package ops

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/roach88/niftimath/internal/ir"
)

// IsReduce reports whether op is a reduction.
func IsReduce(op ir.Op) bool {
	switch op {
	case ir.OpReduceMin, ir.OpReduceMax, ir.OpReduceMean, ir.OpReduceStd, ir.OpReduceMedian:
		return true
	}
	return false
}

// Reduce collapses an image to a scalar statistic. A scalar operand is a
// TYPE_MISMATCH error. The image is only read, never modified.
func (p *Pool) Reduce(op ir.Op, x ir.Operand) (ir.Scalar, error) {
	if !IsReduce(op) {
		return 0, fmt.Errorf("ops: %q is not a reduction", op)
	}
	img, ok := x.(*ir.Image)
	if !ok {
		return 0, &ir.Error{
			Code:    ir.ErrCodeTypeMismatch,
			Message: fmt.Sprintf("%s requires an image operand, got %s", op, ir.Describe(x)),
			Pos:     -1,
		}
	}

	switch op {
	case ir.OpReduceMin:
		return ir.Scalar(p.Min(img.Data)), nil
	case ir.OpReduceMax:
		return ir.Scalar(p.Max(img.Data)), nil
	case ir.OpReduceMean:
		return ir.Scalar(p.Mean(img.Data)), nil
	case ir.OpReduceStd:
		return ir.Scalar(p.Std(img.Data)), nil
	default:
		return ir.Scalar(p.Median(img.Data)), nil
	}
}

// Min returns the smallest element, NaN if any element is NaN or data is
// empty.
func (p *Pool) Min(data []float64) float64 {
	return p.extremum(data, math.Inf(1), math.Min)
}

// Max returns the largest element, NaN if any element is NaN or data is
// empty.
func (p *Pool) Max(data []float64) float64 {
	return p.extremum(data, math.Inf(-1), math.Max)
}

func (p *Pool) extremum(data []float64, init float64, pick func(a, b float64) float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	partial := make([]float64, NumBlocks(len(data)))
	p.Blocks(len(data), func(b, lo, hi int) {
		m := init
		for _, v := range data[lo:hi] {
			m = pick(m, v)
		}
		partial[b] = m
	})
	m := init
	for _, v := range partial {
		m = pick(m, v)
	}
	return m
}

// Sum returns the sum of data, accumulated per fixed block and combined in
// block order.
func (p *Pool) Sum(data []float64) float64 {
	partial := make([]float64, NumBlocks(len(data)))
	p.Blocks(len(data), func(b, lo, hi int) {
		var s float64
		for _, v := range data[lo:hi] {
			s += v
		}
		partial[b] = s
	})
	var s float64
	for _, v := range partial {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean, NaN for empty data.
func (p *Pool) Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return p.Sum(data) / float64(len(data))
}

// Std returns the population standard deviation computed in two passes:
// the mean, then the root mean square deviation from it.
func (p *Pool) Std(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	mean := p.Mean(data)
	partial := make([]float64, NumBlocks(len(data)))
	p.Blocks(len(data), func(b, lo, hi int) {
		var s float64
		for _, v := range data[lo:hi] {
			d := v - mean
			s += d * d
		}
		partial[b] = s
	})
	var ss float64
	for _, v := range partial {
		ss += v
	}
	return math.Sqrt(ss / float64(len(data)))
}

// Median returns the middle element of the sorted data, averaging the two
// middle elements for even lengths. NaN sorts before every number. Empty
// data yields NaN.
func (p *Pool) Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return math.NaN()
	}
	s := p.Sorted(data)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Sorted returns a sorted copy of data. Blocks are sorted in parallel and
// then merged pairwise, doubling the run width each round.
func (p *Pool) Sorted(data []float64) []float64 {
	n := len(data)
	buf := append([]float64(nil), data...)
	p.Blocks(n, func(_, lo, hi int) {
		slices.Sort(buf[lo:hi])
	})
	if n <= blockSize {
		return buf
	}

	tmp := make([]float64, n)
	for width := blockSize; width < n; width *= 2 {
		pairs := (n + 2*width - 1) / (2 * width)
		split(pairs, min(p.Workers(), pairs), func(first, last int) {
			for k := first; k < last; k++ {
				lo := k * 2 * width
				mid := min(lo+width, n)
				hi := min(lo+2*width, n)
				merge(tmp[lo:hi], buf[lo:mid], buf[mid:hi])
			}
		})
		buf, tmp = tmp, buf
	}
	return buf
}

// merge writes the ordered union of sorted runs a and b into dst, which
// must have length len(a)+len(b). Ordering matches slices.Sort (cmp.Less
// puts NaN first).
func merge(dst, a, b []float64) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if cmp.Less(b[j], a[i]) {
			dst[k] = b[j]
			j++
		} else {
			dst[k] = a[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}
