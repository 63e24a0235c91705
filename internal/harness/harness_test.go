package harness

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ScenarioFiles(t *testing.T) {
	entries, err := os.ReadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, e := range entries {
		if !IsScenarioFile(e.Name()) {
			continue
		}
		t.Run(e.Name(), func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata/scenarios", e.Name()))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func scaleScenario() *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Images: []ImageSpec{
			{Name: "a.nii", Shape: []int{2}, Data: []float64{1, 2}},
			{Name: "b.nii", Shape: []int{2}, Data: []float64{3, 4}},
		},
		Expr: []string{"a.nii", "b.nii", "add"},
	}
}

func TestRun_DataMismatch(t *testing.T) {
	s := scaleScenario()
	s.Expect = Expect{Data: []float64{4, 7}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: data")
	assert.Contains(t, result.Errors[0], "[1] = 6")
	assert.Equal(t, []float64{4, 6}, result.Data)
}

func TestRun_Tolerance(t *testing.T) {
	s := scaleScenario()
	s.Expect = Expect{Data: []float64{4.05, 5.95}, Tolerance: 0.1}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ShapeAndHeaderMismatch(t *testing.T) {
	s := scaleScenario()
	s.Expr = []string{"b.nii", "a.nii", "add"}
	s.Expect = Expect{Shape: []int{1, 2}, Header: "a.nii"}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "shape")
	assert.Contains(t, result.Errors[1], "scenario:b.nii")
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	s := scaleScenario()
	s.Expect = Expect{Error: "SHAPE_MISMATCH"}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "evaluation succeeded")
}

func TestRun_UnexpectedError(t *testing.T) {
	s := scaleScenario()
	s.Expr = []string{"a.nii", "missing.nii", "add"}
	s.Expect = Expect{Data: []float64{1, 2}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "IMAGE_LOAD", result.Code)
	assert.Len(t, result.Trace, 1)
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := scaleScenario()
	s.Expr = []string{"a.nii", "bogus"}
	s.Expect = Expect{Error: "STACK_UNDERFLOW"}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "UNKNOWN_TOKEN", result.Code)
}

func TestRun_ThreadsDoNotChangeDigest(t *testing.T) {
	data := make([]float64, 9000)
	for i := range data {
		data[i] = math.Sin(float64(i)) * 1000
	}
	base := &Scenario{
		Name:        "threads",
		Description: "large image",
		Images:      []ImageSpec{{Name: "big.nii", Shape: []int{30, 300}, Data: data}},
		Expr:        []string{"big.nii", "big.nii", "reduce_mean", "sub", "big.nii", "reduce_std", "div"},
		Expect:      Expect{Shape: []int{30, 300}},
	}

	var digests []string
	for _, threads := range []int{1, 3, 8} {
		s := *base
		s.Threads = threads
		result, err := Run(context.Background(), &s)
		require.NoError(t, err)
		require.True(t, result.Pass, "errors: %v", result.Errors)
		digests = append(digests, result.Digest)
	}
	assert.Equal(t, digests[0], digests[1])
	assert.Equal(t, digests[0], digests[2])
}

func TestMatchData(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)

	tests := []struct {
		name string
		want []float64
		got  []float64
		tol  float64
		idx  int
		ok   bool
	}{
		{"equal", []float64{1, 2}, []float64{1, 2}, 0, 0, true},
		{"length", []float64{1}, []float64{1, 2}, 0, -1, false},
		{"nan matches nan", []float64{nan}, []float64{nan}, 0, 0, true},
		{"nan vs number", []float64{1, nan}, []float64{1, 1}, 1, 1, false},
		{"inf exact", []float64{inf}, []float64{inf}, 0, 0, true},
		{"inf vs large", []float64{inf}, []float64{1e308}, 1e308, 0, false},
		{"within tolerance", []float64{1}, []float64{1.001}, 0.01, 0, true},
		{"outside tolerance", []float64{1}, []float64{1.1}, 0.01, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := matchData(tt.want, tt.got, tt.tol)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				assert.Equal(t, tt.idx, idx)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	r := NewResult("x")
	r.Code = "INVALID_RESULT"
	assert.Equal(t, "scenario: x\nresult: error INVALID_RESULT\n", string(Snapshot(r)))
}
