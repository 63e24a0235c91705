package ir

// InstrCode identifies the category of an Instruction.
type InstrCode int

const (
	// PushScalar pushes the literal Value.
	PushScalar InstrCode = iota + 1
	// PushImageRef resolves Path through the operand cache and pushes it.
	PushImageRef
	// Binary pops rhs then lhs and pushes Op(lhs, rhs).
	Binary
	// Unary pops one operand and pushes Op(x).
	Unary
	// Reduce pops one image and pushes a scalar statistic.
	Reduce
)

// String returns the snake_case name used in traces and the run log.
func (c InstrCode) String() string {
	switch c {
	case PushScalar:
		return "push_scalar"
	case PushImageRef:
		return "push_image"
	case Binary:
		return "binary"
	case Unary:
		return "unary"
	case Reduce:
		return "reduce"
	default:
		return "invalid"
	}
}

// MarshalText encodes the code by name.
func (c InstrCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseInstrCode is the inverse of String. It returns false for unknown names.
func ParseInstrCode(s string) (InstrCode, bool) {
	for c := PushScalar; c <= Reduce; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Arity returns how many operands the instruction pops.
func (c InstrCode) Arity() int {
	switch c {
	case Binary:
		return 2
	case Unary, Reduce:
		return 1
	default:
		return 0
	}
}

// Op names an operator in the expression vocabulary.
// The string value is the token users write.
type Op string

// Binary operators.
const (
	OpAdd Op = "add"
	OpSub Op = "sub"
	OpMul Op = "mul"
	OpDiv Op = "div"
)

// Unary operators.
const (
	OpAbs   Op = "abs"
	OpFloor Op = "floor"
	OpCeil  Op = "ceil"
	OpRound Op = "round"
	OpSqrt  Op = "sqrt"
	OpCbrt  Op = "cbrt"
	OpExp   Op = "exp"
	OpExp2  Op = "exp2"
	OpLn    Op = "ln"
	OpLog2  Op = "log2"
	OpLog10 Op = "log10"
	OpSin   Op = "sin"
	OpCos   Op = "cos"
	OpTan   Op = "tan"
	OpAsin  Op = "asin"
	OpAcos  Op = "acos"
	OpAtan  Op = "atan"
	OpSinh  Op = "sinh"
	OpCosh  Op = "cosh"
	OpTanh  Op = "tanh"
)

// Reduction operators.
const (
	OpReduceMin    Op = "reduce_min"
	OpReduceMax    Op = "reduce_max"
	OpReduceMean   Op = "reduce_mean"
	OpReduceStd    Op = "reduce_std"
	OpReduceMedian Op = "reduce_median"
)

// BinaryOps lists the binary vocabulary in documentation order.
var BinaryOps = []Op{OpAdd, OpSub, OpMul, OpDiv}

// UnaryOps lists the unary vocabulary in documentation order.
var UnaryOps = []Op{
	OpAbs, OpFloor, OpCeil, OpRound, OpSqrt, OpCbrt,
	OpExp, OpExp2, OpLn, OpLog2, OpLog10,
	OpSin, OpCos, OpTan, OpAsin, OpAcos, OpAtan,
	OpSinh, OpCosh, OpTanh,
}

// ReduceOps lists the reduction vocabulary in documentation order.
var ReduceOps = []Op{OpReduceMin, OpReduceMax, OpReduceMean, OpReduceStd, OpReduceMedian}

// Instruction is one classified token of an RPN expression.
// Instructions are immutable once produced by the classifier.
type Instruction struct {
	// Code is the instruction category.
	Code InstrCode

	// Token is the raw token the instruction was classified from.
	Token string

	// Pos is the zero-based position of Token in the expression.
	Pos int

	// Value is the literal for PushScalar.
	Value float64

	// Path is the image path for PushImageRef.
	Path string

	// Op is the operator for Binary, Unary and Reduce.
	Op Op
}
