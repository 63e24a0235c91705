// Package store provides SQLite-backed durable storage for the niftimath
// run history.
//
// The store is an append-only log with:
//   - Runs: one record per evaluation (expression, output, datatype,
//     status, result shape and digest)
//   - Steps: the step trace of each run, one row per executed instruction
//
// # Ordering
//
//   - Runs are ordered by seq INTEGER, assigned on insert. started_at is
//     informational and never used for ordering.
//   - Steps are ordered by their trace seq within a run.
//
// # Idempotency
//
// Run IDs are UUIDv7. Writing a run whose ID already exists is a no-op,
// including its steps.
//
// # Database Configuration
//
// A history may be shared by evaluations running side by side:
//
//   - WAL mode: history listings read while a run is being recorded
//   - synchronous=NORMAL: a crash can lose the last run, never corrupt older ones
//   - busy_timeout=5000: a second recording run waits up to 5 seconds
//   - foreign_keys=ON: steps always belong to a recorded run
//
// The schema version lives in PRAGMA user_version. Newer histories are
// refused.
package store
