package engine

import "github.com/roach88/niftimath/internal/ir"

// stack is the operand stack of one run. The top is the last element.
type stack []ir.Operand

func (s *stack) push(v ir.Operand) {
	*s = append(*s, v)
}

func (s stack) len() int {
	return len(s)
}

// peek returns the top operand, or nil when empty.
func (s stack) peek() ir.Operand {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// pop removes the top operand for op.
func (s *stack) pop(op ir.Op) (ir.Operand, error) {
	if len(*s) == 0 {
		return nil, ir.Errorf(ir.ErrCodeStackUnderflow, "%s needs 1 operand, stack is empty", op)
	}
	v := (*s)[len(*s)-1]
	(*s)[len(*s)-1] = nil
	*s = (*s)[:len(*s)-1]
	return v, nil
}

// pop2 removes the two top operands, returning the right-hand one first.
// Neither is removed when fewer than two are available.
func (s *stack) pop2(op ir.Op) (rhs, lhs ir.Operand, err error) {
	if n := len(*s); n < 2 {
		return nil, nil, ir.Errorf(ir.ErrCodeStackUnderflow, "%s needs 2 operands, stack has %d", op, n)
	}
	rhs, _ = s.pop(op)
	lhs, _ = s.pop(op)
	return rhs, lhs, nil
}
