// Package ops implements the operator library: binary arithmetic with
// scalar broadcasting, elementwise unary functions, and reductions.
//
// Operators consume their operands. An *ir.Image passed to Binary or Unary
// is owned by the callee and is updated in place; callers must not use it
// afterwards. The returned operand is the result.
//
// Elementwise work is split into contiguous index ranges across a Pool.
// Reductions sum per fixed-size block and combine blocks in order, so every
// result is bit-identical regardless of the worker count.
package ops
