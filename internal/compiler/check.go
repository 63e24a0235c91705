package compiler

import (
	"fmt"

	"github.com/roach88/niftimath/internal/ir"
)

// Check simulates the evaluation stack over operand kinds only and returns
// the first error the engine would be certain to hit.
//
// Shape mismatches and load failures depend on file contents and are left
// to the engine. Check returns nil for an expression that may succeed.
func Check(instrs []ir.Instruction) error {
	var stack []ir.OperandKind

	pop := func() ir.OperandKind {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return k
	}

	for _, in := range instrs {
		if len(stack) < in.Code.Arity() {
			return &ir.Error{
				Code:    ir.ErrCodeStackUnderflow,
				Message: fmt.Sprintf("%s needs %d operand(s), stack holds %d", in.Token, in.Code.Arity(), len(stack)),
				Token:   in.Token,
				Pos:     in.Pos,
			}
		}

		switch in.Code {
		case ir.PushScalar:
			stack = append(stack, ir.KindScalar)
		case ir.PushImageRef:
			stack = append(stack, ir.KindImage)
		case ir.Binary:
			rhs, lhs := pop(), pop()
			if lhs == ir.KindImage || rhs == ir.KindImage {
				stack = append(stack, ir.KindImage)
			} else {
				stack = append(stack, ir.KindScalar)
			}
		case ir.Unary:
			// Unary operators preserve the operand kind.
		case ir.Reduce:
			if pop() != ir.KindImage {
				return &ir.Error{
					Code:    ir.ErrCodeTypeMismatch,
					Message: fmt.Sprintf("%s requires an image operand, got a scalar", in.Token),
					Token:   in.Token,
					Pos:     in.Pos,
				}
			}
			stack = append(stack, ir.KindScalar)
		default:
			return fmt.Errorf("check: invalid instruction code %d at position %d", in.Code, in.Pos)
		}
	}

	switch {
	case len(stack) == 0:
		return ir.Errorf(ir.ErrCodeInvalidResult, "expression leaves the stack empty")
	case len(stack) > 1:
		return ir.Errorf(ir.ErrCodeInvalidResult, "expression leaves %d operands on the stack, want 1", len(stack))
	case stack[0] != ir.KindImage:
		return ir.Errorf(ir.ErrCodeInvalidResult, "expression result is a scalar, want an image")
	}
	return nil
}
