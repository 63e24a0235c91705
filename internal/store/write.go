package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and its step trace in one transaction.
// Returns inserted=false if a run with the same ID already exists, in
// which case nothing is written.
//
// run.Seq is ignored; the store assigns it. run.Steps is set to len(steps).
func (s *Store) WriteRun(ctx context.Context, run Run, steps []Step) (inserted bool, err error) {
	if run.ID == "" {
		return false, fmt.Errorf("write run: id is required")
	}
	if run.Status != StatusOK && run.Status != StatusError {
		return false, fmt.Errorf("write run %s: invalid status %q", run.ID, run.Status)
	}

	expr, err := marshalTokens(run.Expression)
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", run.ID, err)
	}
	shape, err := marshalShape(run.Shape)
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run %s: begin tx: %w", run.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, expression, output, datatype, threads, status, error_code, error_message,
		 shape, digest, steps, engine_version, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		expr,
		run.Output,
		run.Datatype,
		run.Threads,
		run.Status,
		run.ErrorCode,
		run.ErrorMessage,
		shape,
		run.Digest,
		len(steps),
		run.EngineVersion,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run %s: rows affected: %w", run.ID, err)
	}
	if rows == 0 {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps (run_id, seq, pos, token, code, depth, top)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("write run %s: prepare steps: %w", run.ID, err)
	}
	defer stmt.Close()

	for _, st := range steps {
		if _, err := stmt.ExecContext(ctx, run.ID, st.Seq, st.Pos, st.Token, st.Code, st.Depth, st.Top); err != nil {
			return false, fmt.Errorf("write run %s: step %d: %w", run.ID, st.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return true, nil
}
