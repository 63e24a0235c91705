// Package engine implements the niftimath evaluation stack machine.
//
// ARCHITECTURE:
//
// Single Evaluation Goroutine:
// Run consumes a compiled instruction list in order on the calling
// goroutine. The only parallelism is inside elementwise kernels and
// reductions (internal/ops), which partition arrays into disjoint ranges.
// This ensures:
//   - Operands are exclusively owned by their stack slot
//   - The operand cache is populated strictly before it is read
//   - Step traces are reproducible
//
// Instruction Processing:
//  1. A fresh operand cache is created and planned from the instruction list
//  2. Each instruction pushes, pops or combines operands
//  3. Every completed instruction appends a Step to the trace, stamped by Clock
//  4. The terminal stack must hold exactly one image
//
// Operand order: for binary operators the first pop is the right-hand
// operand, so "a b sub" computes a - b.
//
// All failures are *ir.Error values and abort the run. Nothing is retried;
// evaluation is deterministic.
package engine
