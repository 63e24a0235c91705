package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/niftimath/internal/cast"
	"github.com/roach88/niftimath/internal/nifti"
	"github.com/roach88/niftimath/internal/store"
	"github.com/roach88/niftimath/internal/testutil"
)

// fixtures writes the 2x2 images used by most evaluation tests.
func fixtures(t *testing.T) (dir, a, b string) {
	t.Helper()
	dir = t.TempDir()
	a = testutil.WriteImage(t, dir, "a.nii", []int{2, 2}, 1, 2, 3, 4)
	b = testutil.WriteImage(t, dir, "b.nii.gz", []int{2, 2}, 5, 6, 7, 8)
	return dir, a, b
}

func TestEvaluate_ScaleAndAdd(t *testing.T) {
	dir, a, b := fixtures(t)
	out := filepath.Join(dir, "sum.nii")

	stdout, stderr, code := runCLI(t, newTestRoot(), a, "2.0", "mul", b, "add", out)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "wrote "+out+": image[2x2] f64 (5 steps)")

	img, hdr := testutil.ReadImage(t, out)
	assert.Equal(t, []int{2, 2}, img.Shape)
	assert.Equal(t, []float64{7, 10, 13, 16}, img.Data)
	assert.Equal(t, "fixture:a.nii", hdr.Description(), "header comes from the first image")
}

func TestEvaluate_AbsKeepsHeader(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteImage(t, dir, "a.nii", []int{3}, -1.5, 0, 2)
	out := filepath.Join(dir, "abs.nii.gz")

	_, stderr, code := runCLI(t, newTestRoot(), a, "abs", out)
	require.Equal(t, ExitSuccess, code, stderr)

	img, hdr := testutil.ReadImage(t, out)
	assert.Equal(t, []float64{1.5, 0, 2}, img.Data)
	assert.Equal(t, "fixture:a.nii", hdr.Description())
}

func TestEvaluate_NegativeLiterals(t *testing.T) {
	tests := []struct {
		name string
		args func(a, out string) []string
		want []float64
	}{
		{
			name: "leading_after_double_dash",
			args: func(a, out string) []string { return []string{"--", "-1", a, "mul", out} },
			want: []float64{-1, -2, -3, -4},
		},
		{
			name: "inside_expression",
			args: func(a, out string) []string { return []string{a, "-1", "mul", out} },
			want: []float64{-1, -2, -3, -4},
		},
		{
			name: "after_flags",
			args: func(a, out string) []string { return []string{"-t", "2", a, "-0.5", "sub", out} },
			want: []float64{1.5, 2.5, 3.5, 4.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, a, _ := fixtures(t)
			out := filepath.Join(dir, "out.nii")

			_, stderr, code := runCLI(t, newTestRoot(), tt.args(a, out)...)
			require.Equal(t, ExitSuccess, code, stderr)

			img, _ := testutil.ReadImage(t, out)
			assert.Equal(t, tt.want, img.Data)
		})
	}
}

func TestEvaluate_RoundingCast(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteImage(t, dir, "a.nii", []int{3}, 1.4, 1.5, -1.5)
	out := filepath.Join(dir, "rounded.nii")

	stdout, stderr, code := runCLI(t, newTestRoot(), "-d", "i16", a, out)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "i16")

	img, hdr := testutil.ReadImage(t, out)
	assert.Equal(t, []float64{1, 2, -2}, img.Data)
	assert.Equal(t, nifti.Code(cast.I16), hdr.Datatype)
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     func(dir, a string) []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "stack_underflow",
			args:     func(dir, a string) []string { return []string{"add"} },
			wantCode: ExitFailure,
			wantErr:  "Error [STACK_UNDERFLOW]",
		},
		{
			name: "shape_mismatch",
			args: func(dir, a string) []string {
				c := testutil.WriteImage(t, dir, "c.nii", []int{3}, 1, 2, 3)
				return []string{a, c, "add"}
			},
			wantCode: ExitFailure,
			wantErr:  "Error [SHAPE_MISMATCH]",
		},
		{
			name:     "unknown_token",
			args:     func(dir, a string) []string { return []string{a, "frobnicate"} },
			wantCode: ExitFailure,
			wantErr:  "Error [UNKNOWN_TOKEN]",
		},
		{
			name:     "image_load",
			args:     func(dir, a string) []string { return []string{filepath.Join(dir, "missing.nii"), "abs"} },
			wantCode: ExitFailure,
			wantErr:  "Error [IMAGE_LOAD]",
		},
		{
			name:     "reduce_scalar",
			args:     func(dir, a string) []string { return []string{"2", "reduce_mean", a, "add"} },
			wantCode: ExitFailure,
			wantErr:  "Error [TYPE_MISMATCH]",
		},
		{
			name:     "scalar_result",
			args:     func(dir, a string) []string { return []string{a, "reduce_max"} },
			wantCode: ExitFailure,
			wantErr:  "Error [INVALID_RESULT]",
		},
		{
			name:     "two_results",
			args:     func(dir, a string) []string { return []string{a, a} },
			wantCode: ExitFailure,
			wantErr:  "Error [INVALID_RESULT]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, a, _ := fixtures(t)
			out := filepath.Join(dir, "out.nii")
			args := append(tt.args(dir, a), out)

			_, stderr, code := runCLI(t, newTestRoot(), args...)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, stderr, tt.wantErr)
			assert.NotContains(t, stderr, "Error: evaluation failed", "reported errors are printed once")

			_, err := os.Stat(out)
			assert.True(t, os.IsNotExist(err), "no output is written on failure")
		})
	}
}

func TestEvaluate_CommandErrors(t *testing.T) {
	dir, a, _ := fixtures(t)
	out := filepath.Join(dir, "out.nii")

	_, stderr, code := runCLI(t, newTestRoot(), "-d", "f16", a, out)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "UNSUPPORTED_DATATYPE")

	_, stderr, code = runCLI(t, newTestRoot(), "-t", "0", a, out)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "--threads must be a positive integer")

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestEvaluate_TrailingOptions(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteImage(t, dir, "a.nii", []int{3}, 1.4, -1.5, 2)
	out := filepath.Join(dir, "out.nii")

	stdout, stderr, code := runCLI(t, newTestRoot(), a, "abs", out, "-d", "i16", "-t", "2", "--format", "json")
	require.Equal(t, ExitSuccess, code, stderr)

	var resp struct {
		Data EvalResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, string(cast.I16), resp.Data.Datatype)
	assert.Equal(t, 2, resp.Data.Threads)
	assert.Equal(t, out, resp.Data.Output)

	img, _ := testutil.ReadImage(t, out)
	assert.Equal(t, []float64{1, 2, 2}, img.Data)
}

func TestEvaluate_MisplacedOptions(t *testing.T) {
	dir, a, _ := fixtures(t)
	out := filepath.Join(dir, "out.nii")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"inside_expression", []string{a, "-d", "u8", "abs", out}, `option "-d" must come before the expression or after the output path`},
		{"unknown_trailing", []string{a, "abs", out, "--bogus"}, "invalid flags"},
		{"missing_value", []string{a, "abs", out, "-d"}, "invalid flags"},
		{"bad_trailing_format", []string{a, "abs", out, "--format", "xml"}, `invalid format "xml"`},
		{"only_output_before", []string{out, "-t", "2"}, "expected an expression followed by an output path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCLI(t, newTestRoot(), tt.args...)
			assert.Equal(t, ExitCommandError, code)
			assert.Contains(t, stderr, tt.wantErr)
			assert.NotContains(t, stderr, "UNKNOWN_TOKEN")

			_, err := os.Stat(out)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestEvaluate_DecomposedFilename(t *testing.T) {
	dir := t.TempDir()
	// e + combining acute accent, as macOS and some shells store it.
	a := testutil.WriteImage(t, dir, "cafe\u0301.nii", []int{2}, -3, 4)
	out := filepath.Join(dir, "out.nii")

	_, stderr, code := runCLI(t, newTestRoot(), a, "abs", a, "add", out)
	require.Equal(t, ExitSuccess, code, stderr)

	img, hdr := testutil.ReadImage(t, out)
	assert.Equal(t, []float64{6, 8}, img.Data)
	assert.Equal(t, "fixture:cafe\u0301.nii", hdr.Description())

	_, err := os.Stat(filepath.Join(dir, "caf\u00e9.nii"))
	assert.True(t, os.IsNotExist(err), "only the decomposed name exists on disk")
}

func TestEvaluate_JSONOutput(t *testing.T) {
	dir, a, b := fixtures(t)
	out := filepath.Join(dir, "sum.nii")

	stdout, stderr, code := runCLI(t, newTestRoot("run-1"), "--format", "json", a, "2", "mul", b, "add", out)
	require.Equal(t, ExitSuccess, code, stderr)

	var resp struct {
		Status  string     `json:"status"`
		Data    EvalResult `json:"data"`
		TraceID string     `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.TraceID)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, out, resp.Data.Output)
	assert.Equal(t, []int{2, 2}, resp.Data.Shape)
	assert.Equal(t, 5, resp.Data.Steps)
	assert.Len(t, resp.Data.Digest, 64)
	assert.Empty(t, resp.Data.Trace, "trace is only included with --verbose")
}

func TestEvaluate_JSONError(t *testing.T) {
	dir, _, _ := fixtures(t)

	stdout, _, code := runCLI(t, newTestRoot("run-1"), "--format", "json", "add", filepath.Join(dir, "out.nii"))
	assert.Equal(t, ExitFailure, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "STACK_UNDERFLOW", resp.Error.Code)
	assert.Equal(t, "run-1", resp.TraceID)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "add", details["token"])
	assert.Equal(t, float64(0), details["pos"])
}

func TestEvaluate_VerboseTrace(t *testing.T) {
	dir, a, _ := fixtures(t)
	out := filepath.Join(dir, "out.nii")

	_, stderr, code := runCLI(t, newTestRoot(), "-v", a, "reduce_mean", a, "sub", out)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "seq=1 pos=0 push_image "+a+" depth=1 top=image[2x2]")
	assert.Contains(t, stderr, "seq=2 pos=1 reduce reduce_mean depth=1 top=scalar(2.5)")
	assert.Contains(t, stderr, "seq=4 pos=3 binary sub depth=1 top=image[2x2]")
	assert.Contains(t, stderr, "level=DEBUG")

	img, _ := testutil.ReadImage(t, out)
	assert.Equal(t, []float64{1.5, 0.5, -0.5, -1.5}, img.Data)
}

func TestEvaluate_ThreadsDoNotChangeDigest(t *testing.T) {
	dir := t.TempDir()
	data := make([]float64, 100*93)
	for i := range data {
		data[i] = float64(i%17)*0.37 - 2.1
	}
	a := testutil.WriteImage(t, dir, "big.nii", []int{100, 93}, data...)

	digest := func(threads string) string {
		out := filepath.Join(dir, "out-"+threads+".nii")
		stdout, stderr, code := runCLI(t, newTestRoot(), "--format", "json", "-t", threads,
			a, a, "reduce_std", "div", a, "reduce_mean", "sub", "abs", "sqrt", out)
		require.Equal(t, ExitSuccess, code, stderr)

		var resp struct {
			Data EvalResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
		assert.Equal(t, []int{100, 93}, resp.Data.Shape)
		return resp.Data.Digest
	}

	want := digest("1")
	assert.Equal(t, want, digest("3"))
	assert.Equal(t, want, digest("8"))
}

func TestEvaluate_RecordsRuns(t *testing.T) {
	dir, a, _ := fixtures(t)
	c := testutil.WriteImage(t, dir, "c.nii", []int{3}, 1, 2, 3)
	dbPath := filepath.Join(dir, "runs.db")

	root := newTestRoot("run-ok")
	_, stderr, code := runCLI(t, root, "--db", dbPath, a, "2", "mul", filepath.Join(dir, "ok.nii"))
	require.Equal(t, ExitSuccess, code, stderr)

	root = newTestRoot("run-fail")
	_, _, code = runCLI(t, root, "--db", dbPath, a, c, "add", filepath.Join(dir, "fail.nii"))
	require.Equal(t, ExitFailure, code)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	failRun, okRun := runs[0], runs[1]
	assert.Equal(t, "run-fail", failRun.ID)
	assert.Equal(t, store.StatusError, failRun.Status)
	assert.Equal(t, "SHAPE_MISMATCH", failRun.ErrorCode)
	assert.Equal(t, 2, failRun.Steps, "steps before the failing instruction are kept")
	assert.Empty(t, failRun.Digest)

	assert.Equal(t, "run-ok", okRun.ID)
	assert.Equal(t, store.StatusOK, okRun.Status)
	assert.Equal(t, []string{a, "2", "mul"}, okRun.Expression)
	assert.Equal(t, []int{2, 2}, okRun.Shape)
	assert.Equal(t, 3, okRun.Steps)
	assert.Len(t, okRun.Digest, 64)

	steps, err := st.ReadSteps(t.Context(), "run-ok")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, "binary", steps[2].Code)
	assert.Equal(t, "mul", steps[2].Token)
}
