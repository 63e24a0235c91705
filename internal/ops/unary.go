package ops

import (
	"fmt"
	"math"

	"github.com/roach88/niftimath/internal/ir"
)

// unaryFuncs maps unary operators to their float64 kernels. Domain errors
// yield NaN rather than failing.
var unaryFuncs = map[ir.Op]func(float64) float64{
	ir.OpAbs:   math.Abs,
	ir.OpFloor: math.Floor,
	ir.OpCeil:  math.Ceil,
	ir.OpRound: math.Round, // half away from zero
	ir.OpSqrt:  math.Sqrt,
	ir.OpCbrt:  math.Cbrt,
	ir.OpExp:   math.Exp,
	ir.OpExp2:  math.Exp2,
	ir.OpLn:    math.Log,
	ir.OpLog2:  math.Log2,
	ir.OpLog10: math.Log10,
	ir.OpSin:   math.Sin,
	ir.OpCos:   math.Cos,
	ir.OpTan:   math.Tan,
	ir.OpAsin:  math.Asin,
	ir.OpAcos:  math.Acos,
	ir.OpAtan:  math.Atan,
	ir.OpSinh:  math.Sinh,
	ir.OpCosh:  math.Cosh,
	ir.OpTanh:  math.Tanh,
}

// UnaryFunc returns the scalar kernel of a unary operator.
func UnaryFunc(op ir.Op) (func(float64) float64, bool) {
	f, ok := unaryFuncs[op]
	return f, ok
}

// Unary applies op elementwise to an image (in place) or directly to a
// scalar.
func (p *Pool) Unary(op ir.Op, x ir.Operand) (ir.Operand, error) {
	f, ok := unaryFuncs[op]
	if !ok {
		return nil, fmt.Errorf("ops: %q is not a unary operator", op)
	}

	switch v := x.(type) {
	case ir.Scalar:
		return ir.Scalar(f(float64(v))), nil
	case *ir.Image:
		p.Map(v.Data, f)
		return v, nil
	default:
		return nil, fmt.Errorf("ops: unsupported operand %s for %s", ir.Describe(x), op)
	}
}
