package store

import (
	"context"
	"database/sql"
	"fmt"
)

const runColumns = `seq, id, expression, output, datatype, threads, status, error_code,
		error_message, shape, digest, steps, engine_version, started_at`

// ReadRun returns the run with the given ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, at most limit of them.
// A limit of 0 or less returns all runs.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// FindByDigest returns successful runs whose result digest equals digest,
// oldest first.
func (s *Store) FindByDigest(ctx context.Context, digest string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE digest = ? AND status = ?
		ORDER BY seq ASC
	`, digest, StatusOK)
	if err != nil {
		return nil, fmt.Errorf("query runs by digest: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns the step trace of a run ordered by seq ASC.
//
// Returns an empty slice (not nil) for unknown runs or runs with no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, pos, token, code, depth, top
		FROM steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.Seq, &st.Pos, &st.Token, &st.Code, &st.Depth, &st.Top); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run             Run
		expr, shape, ts string
	)
	if err := sc.Scan(
		&run.Seq,
		&run.ID,
		&expr,
		&run.Output,
		&run.Datatype,
		&run.Threads,
		&run.Status,
		&run.ErrorCode,
		&run.ErrorMessage,
		&shape,
		&run.Digest,
		&run.Steps,
		&run.EngineVersion,
		&ts,
	); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.Expression, err = unmarshalTokens(expr); err != nil {
		return Run{}, err
	}
	if run.Shape, err = unmarshalShape(shape); err != nil {
		return Run{}, err
	}
	if run.StartedAt, err = parseTime(ts); err != nil {
		return Run{}, err
	}
	return run, nil
}
