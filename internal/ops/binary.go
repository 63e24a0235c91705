package ops

import (
	"fmt"

	"github.com/roach88/niftimath/internal/ir"
)

// binaryFuncs holds the scalar kernel of each binary operator.
// Division by zero follows IEEE-754 (±Inf or NaN).
var binaryFuncs = map[ir.Op]func(a, b float64) float64{
	ir.OpAdd: func(a, b float64) float64 { return a + b },
	ir.OpSub: func(a, b float64) float64 { return a - b },
	ir.OpMul: func(a, b float64) float64 { return a * b },
	ir.OpDiv: func(a, b float64) float64 { return a / b },
}

// IsBinary reports whether op is a binary operator.
func IsBinary(op ir.Op) bool {
	_, ok := binaryFuncs[op]
	return ok
}

// Binary applies op to lhs and rhs and returns the result.
//
//	Image  op Image  -> elementwise; shapes must match
//	Scalar op Image  -> s op I[i]
//	Image  op Scalar -> I[i] op s
//	Scalar op Scalar -> s op t
//
// Image operands are consumed: the result reuses lhs (or rhs when lhs is a
// scalar) as its storage.
func (p *Pool) Binary(op ir.Op, lhs, rhs ir.Operand) (ir.Operand, error) {
	f, ok := binaryFuncs[op]
	if !ok {
		return nil, fmt.Errorf("ops: %q is not a binary operator", op)
	}

	switch l := lhs.(type) {
	case *ir.Image:
		switch r := rhs.(type) {
		case *ir.Image:
			if !l.SameShape(r) {
				return nil, &ir.Error{
					Code:    ir.ErrCodeShapeMismatch,
					Message: fmt.Sprintf("%s of image[%s] and image[%s]", op, ir.FormatShape(l.Shape), ir.FormatShape(r.Shape)),
					Pos:     -1,
				}
			}
			p.Range(l.Len(), func(lo, hi int) {
				dst, src := l.Data[lo:hi], r.Data[lo:hi]
				for i := range dst {
					dst[i] = f(dst[i], src[i])
				}
			})
			return l, nil
		case ir.Scalar:
			s := float64(r)
			p.Map(l.Data, func(v float64) float64 { return f(v, s) })
			return l, nil
		}
	case ir.Scalar:
		s := float64(l)
		switch r := rhs.(type) {
		case *ir.Image:
			p.Map(r.Data, func(v float64) float64 { return f(s, v) })
			return r, nil
		case ir.Scalar:
			return ir.Scalar(f(s, float64(r))), nil
		}
	}
	return nil, fmt.Errorf("ops: unsupported operands %s %s %s", ir.Describe(lhs), op, ir.Describe(rhs))
}
