package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/niftimath/internal/engine"
	"github.com/roach88/niftimath/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Expectation that failed: error, shape, data, header
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []engine.Step // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, s := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", engine.FormatStep(s))
		}
	}
	return buf.String()
}

// outcome is what a scenario run produced, before comparison.
type outcome struct {
	err    error
	image  *ir.Image
	header string // description of the output header
}

// checkExpect compares an outcome with exp. It returns one error per
// failed expectation, in the order error, shape, data, header.
func checkExpect(exp Expect, out outcome, trace []engine.Step) []error {
	var errs []error
	fail := func(typ, expected, actual string) {
		errs = append(errs, &AssertionError{Type: typ, Expected: expected, Actual: actual, Trace: trace})
	}

	if exp.Error != "" {
		got := string(ir.CodeOf(out.err))
		switch {
		case out.err == nil:
			fail("error", exp.Error, "evaluation succeeded")
		case got != exp.Error:
			fail("error", exp.Error, out.err.Error())
		}
		return errs
	}

	if out.err != nil {
		fail("error", "success", out.err.Error())
		return errs
	}

	if exp.Shape != nil && !slices.Equal(exp.Shape, out.image.Shape) {
		fail("shape", ir.FormatShape(exp.Shape), ir.FormatShape(out.image.Shape))
	}

	if exp.Data != nil {
		if i, ok := matchData(exp.Data, out.image.Data, exp.Tolerance); !ok {
			if i < 0 {
				fail("data", fmt.Sprintf("%d elements", len(exp.Data)), fmt.Sprintf("%d elements", len(out.image.Data)))
			} else {
				fail("data", fmt.Sprintf("[%d] = %g (tolerance %g)", i, exp.Data[i], exp.Tolerance), fmt.Sprintf("[%d] = %g", i, out.image.Data[i]))
			}
		}
	}

	if exp.Header != "" && out.header != headerTag(exp.Header) {
		fail("header", headerTag(exp.Header), out.header)
	}
	return errs
}

// matchData compares element by element. NaN matches NaN and infinities
// match exactly. It returns the first mismatching index, or -1 if the
// lengths differ.
func matchData(want, got []float64, tol float64) (int, bool) {
	if len(want) != len(got) {
		return -1, false
	}
	for i := range want {
		w, g := want[i], got[i]
		switch {
		case math.IsNaN(w) || math.IsNaN(g):
			if math.IsNaN(w) != math.IsNaN(g) {
				return i, false
			}
		case math.IsInf(w, 0) || math.IsInf(g, 0):
			if w != g {
				return i, false
			}
		case math.Abs(w-g) > tol:
			return i, false
		}
	}
	return 0, true
}
