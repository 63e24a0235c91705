package ir

// Version constants for the engine and its persisted records.
const (
	// EngineVersion is the niftimath engine version.
	EngineVersion = "0.1.0"

	// TraceVersion is the step trace format version stored with each run.
	TraceVersion = "1"
)
