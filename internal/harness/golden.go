package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/niftimath/internal/engine"
	"github.com/roach88/niftimath/internal/ir"
)

// Snapshot renders the deterministic part of a result for golden files:
// the scenario name, one line per step, and the outcome.
//
//	scenario: scale_and_add
//	seq=1 pos=0 push_image a.nii depth=1 top=image[2x2]
//	...
//	result: ok image[2x2] digest=5e0c...
func Snapshot(result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", result.Name)
	b.WriteString(engine.FormatTrace(result.Trace))
	if result.Code != "" {
		fmt.Fprintf(&b, "result: error %s\n", result.Code)
	} else {
		fmt.Fprintf(&b, "result: ok image[%s] digest=%s\n", ir.FormatShape(result.Shape), result.Digest)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also assert on Pass. Returns error if
// scenario execution fails. Test failure (via goldie) occurs if the
// snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
