package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a successful run with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:            id,
		Expression:    []string{"a.nii", "2", "mul"},
		Output:        "out.nii",
		Datatype:      "f64",
		Threads:       1,
		Status:        StatusOK,
		Shape:         []int{2, 2},
		Digest:        "digest-" + id,
		EngineVersion: "0.1.0",
		StartedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// createTestSteps creates the trace for createTestRun's expression.
func createTestSteps() []Step {
	return []Step{
		{Seq: 1, Pos: 0, Token: "a.nii", Code: "push_image", Depth: 1, Top: "image[2x2]"},
		{Seq: 2, Pos: 1, Token: "2", Code: "push_scalar", Depth: 2, Top: "scalar(2)"},
		{Seq: 3, Pos: 2, Token: "mul", Code: "binary", Depth: 1, Top: "image[2x2]"},
	}
}
