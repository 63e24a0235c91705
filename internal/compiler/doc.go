// Package compiler turns raw RPN tokens into ir.Instructions.
//
// Compilation has two passes:
//
//  1. Classify maps each token to an Instruction. Recognition order is fixed:
//     image path suffix, then floating-point literal, then operator
//     vocabulary. The first match wins, so "inf" is a scalar and
//     "exp.nii" is an image.
//  2. Check walks the instruction list tracking only operand kinds (never
//     values) and rejects expressions that are guaranteed to fail at run
//     time: stack underflow, reductions of scalars, and terminal stacks that
//     are not exactly one image. It lets the CLI fail before any image is
//     read.
//
// Both passes are pure functions of their input.
package compiler
