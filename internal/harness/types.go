package harness

import "github.com/roach88/niftimath/internal/engine"

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass indicates that the outcome matched the expectation.
	Pass bool `json:"pass"`

	// Trace contains the completed evaluation steps in order.
	Trace []engine.Step `json:"trace"`

	// Code is the error code of a failed evaluation, "" on success.
	Code string `json:"code,omitempty"`

	// Message is the full error text of a failed evaluation.
	Message string `json:"message,omitempty"`

	// Shape and Data hold the output as read back from disk.
	Shape []int     `json:"shape,omitempty"`
	Data  []float64 `json:"-"`

	// Digest is the ir.ImageDigest of the read-back output.
	Digest string `json:"digest,omitempty"`

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []engine.Step{},
		Errors: []string{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
