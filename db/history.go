package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"restager/batch"
)

// History stores run manifests in SQLite so results survive output-directory
// cleanup. It satisfies batch.History.
type History struct {
	conn *sql.DB
}

// NewHistory wraps an open connection. Callers run migrations first.
func NewHistory(conn *sql.DB) *History {
	return &History{conn: conn}
}

// RunRecord is a single persisted run.
type RunRecord struct {
	ID         string
	Engine     string
	Preset     string
	Category   string
	ImageCount int
	ErrorCount int
	CreatedAt  time.Time
}

// JobRecord is a single persisted per-image output.
type JobRecord struct {
	RunID        string
	ImageIndex   int
	Level        string
	File         string
	Outcome      string
	Warning      string
	Error        string
	PainterCalls int
}

// SaveRun writes the run row and its job rows in one transaction.
func (h *History) SaveRun(ctx context.Context, m *batch.Manifest) error {
	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, engine, preset, category, image_count, error_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.RunID, m.Engine, m.Preset, m.Category, m.ImageCount, len(m.Errors))
	if err != nil {
		return fmt.Errorf("db: insert run %s: %w", m.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO jobs (run_id, image_index, level, file, outcome, warning, error, painter_calls)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("db: prepare job insert: %w", err)
	}
	defer stmt.Close()

	for _, out := range m.Outputs {
		_, err := stmt.ExecContext(ctx,
			m.RunID, out.Index, out.Level, out.File,
			out.Outcome, out.Warning, out.Error, out.PainterCalls)
		if err != nil {
			return fmt.Errorf("db: insert job %d/%s: %w", out.Index, out.Level, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit run %s: %w", m.RunID, err)
	}
	return nil
}

// GetRun loads one run and its jobs.
func (h *History) GetRun(ctx context.Context, runID string) (*RunRecord, []JobRecord, error) {
	var run RunRecord
	err := h.conn.QueryRowContext(ctx,
		`SELECT id, engine, preset, category, image_count, error_count, created_at
		 FROM runs WHERE id = ?`, runID).
		Scan(&run.ID, &run.Engine, &run.Preset, &run.Category,
			&run.ImageCount, &run.ErrorCount, &run.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("db: load run %s: %w", runID, err)
	}

	rows, err := h.conn.QueryContext(ctx,
		`SELECT run_id, image_index, level, file, outcome, warning, error, painter_calls
		 FROM jobs WHERE run_id = ? ORDER BY level, image_index`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("db: load jobs for %s: %w", runID, err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var j JobRecord
		if err := rows.Scan(&j.RunID, &j.ImageIndex, &j.Level, &j.File,
			&j.Outcome, &j.Warning, &j.Error, &j.PainterCalls); err != nil {
			return nil, nil, fmt.Errorf("db: scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("db: iterate job rows: %w", err)
	}
	return &run, jobs, nil
}

// ListRuns returns the most recent runs, newest first.
func (h *History) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.conn.QueryContext(ctx,
		`SELECT id, engine, preset, category, image_count, error_count, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Engine, &r.Preset, &r.Category,
			&r.ImageCount, &r.ErrorCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterate run rows: %w", err)
	}
	return runs, nil
}

// PruneBefore deletes runs created before the cutoff. Jobs cascade.
func (h *History) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := h.conn.ExecContext(ctx,
		`DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db: prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db: prune rows affected: %w", err)
	}
	return n, nil
}

var _ batch.History = (*History)(nil)
