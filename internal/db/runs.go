package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is one row of threat_runs.
type RunRecord struct {
	ID           string    `json:"run_id"`
	Trigger      string    `json:"trigger"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	Vessels      int       `json:"vessels"`
	Gliders      int       `json:"gliders"`
	Rejected     int       `json:"rejected"`
	Records      int       `json:"records"`
	Appended     int64     `json:"appended"`
	Deduplicated int64     `json:"deduplicated"`
	Error        string    `json:"error,omitempty"`
}

// StartRun records the start of a run.
func (db *DB) StartRun(ctx context.Context, id, trigger string, startedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO threat_runs (run_id, trigger, started_unix) VALUES (?, ?, ?)`,
		id, trigger, unixSeconds(startedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run started with StartRun.
func (db *DB) FinishRun(ctx context.Context, r RunRecord) error {
	var errText sql.NullString
	if r.Error != "" {
		errText = sql.NullString{String: r.Error, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		UPDATE threat_runs SET
			finished_unix = ?,
			vessels = ?,
			gliders = ?,
			rejected = ?,
			records = ?,
			appended = ?,
			deduplicated = ?,
			error = ?
		WHERE run_id = ?
	`,
		unixSeconds(r.FinishedAt), r.Vessels, r.Gliders, r.Rejected, r.Records,
		r.Appended, r.Deduplicated, errText, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			run_id, trigger, started_unix, finished_unix, vessels, gliders,
			rejected, records, appended, deduplicated, error
		FROM
			threat_runs
		ORDER BY
			started_unix DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r        RunRecord
			started  float64
			finished sql.NullFloat64
			errText  sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.Trigger, &started, &finished, &r.Vessels, &r.Gliders,
			&r.Rejected, &r.Records, &r.Appended, &r.Deduplicated, &errText,
		); err != nil {
			return nil, err
		}
		r.StartedAt = fromUnixSeconds(started)
		if finished.Valid {
			r.FinishedAt = fromUnixSeconds(finished.Float64)
		}
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
