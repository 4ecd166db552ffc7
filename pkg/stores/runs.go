package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `id, rule_file, rule, status, started_at, completed_at, error, metadata, created_at, updated_at`

// CreateRun records the start of a rule run. Missing timestamps default to
// now and missing metadata to an empty JSON object.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	now := time.Now().UTC()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now
	if run.Metadata == "" {
		run.Metadata = "{}"
	}

	_, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RuleFile, run.Rule, run.Status, run.StartedAt,
		run.CompletedAt, run.Error, run.Metadata, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// UpdateRunStatus sets the status of a run. Any status other than running
// also stamps the completion time.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg *string) error {
	now := time.Now().UTC()
	var completedAt *time.Time
	if status != RunStatusRunning {
		completedAt = &now
	}

	result, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, completedAt, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return affectedOne(result, "run", id)
}

// ListRuns lists runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	return collect(ctx, s.conn(ctx), "runs", scanRun,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// DeleteRun removes a run record.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return affectedOne(result, "run", id)
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	err := row.Scan(&run.ID, &run.RuleFile, &run.Rule, &run.Status, &run.StartedAt,
		&run.CompletedAt, &run.Error, &run.Metadata, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}
