// Package ir provides the shared data model for niftimath.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the operand, instruction
// and error vocabulary as the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Operand is a sealed sum type: Scalar or *Image, nothing else
//   - Images are dense float64 arrays; the shape travels with the data
//   - Instructions are immutable once produced by the classifier
//   - Header is opaque; the evaluator carries it but never reads it
package ir
