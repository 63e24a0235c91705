package store

import "time"

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one recorded evaluation.
type Run struct {
	// Seq is assigned by the store on insert; it is ignored on write.
	Seq int64 `json:"seq"`

	ID            string    `json:"id"`
	Expression    []string  `json:"expression"`
	Output        string    `json:"output"`
	Datatype      string    `json:"datatype"`
	Threads       int       `json:"threads"`
	Status        string    `json:"status"`
	ErrorCode     string    `json:"error_code,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Shape         []int     `json:"shape,omitempty"`
	Digest        string    `json:"digest,omitempty"`
	Steps         int       `json:"steps"`
	EngineVersion string    `json:"engine_version"`
	StartedAt     time.Time `json:"started_at"`
}

// Step is one row of a run's step trace.
type Step struct {
	Seq   int64  `json:"seq"`
	Pos   int    `json:"pos"`
	Token string `json:"token"`
	Code  string `json:"code"`
	Depth int    `json:"depth"`
	Top   string `json:"top"`
}
