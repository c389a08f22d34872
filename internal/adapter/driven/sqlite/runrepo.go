package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/revbot/internal/domain/model"
	"github.com/ericfisherdev/revbot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Begin inserts a run in its initial state.
func (r *RunRepo) Begin(ctx context.Context, run model.ReviewRun) error {
	const query = `
		INSERT INTO review_runs (id, owner, repo, pull_index, action, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID, run.Pull.Owner, run.Pull.Repo, run.Pull.Index,
		run.Action.String(), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert review run %s: %w", run.ID, err)
	}

	return nil
}

// Finish records the outcome of a run.
func (r *RunRepo) Finish(ctx context.Context, run model.ReviewRun) error {
	const query = `
		UPDATE review_runs
		SET status = ?, review_event = ?, finding_count = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		string(run.Status), string(run.ReviewEvent), run.FindingCount, run.Error,
		formatTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update review run %s: %w", run.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review run %s: rows affected: %w", run.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update review run %s: %w", run.ID, driven.ErrRunNotFound)
	}

	return nil
}

const selectRuns = `
	SELECT id, owner, repo, pull_index, action, status, review_event,
	       finding_count, error, started_at, finished_at
	FROM review_runs
`

// ListRecent returns up to limit runs, most recently started first.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.ReviewRun, error) {
	rows, err := r.db.Reader.QueryContext(ctx,
		selectRuns+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent review runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// ListByPull returns every run for one pull request, most recently started first.
func (r *RunRepo) ListByPull(ctx context.Context, pull model.PullRef) ([]model.ReviewRun, error) {
	rows, err := r.db.Reader.QueryContext(ctx,
		selectRuns+` WHERE owner = ? AND repo = ? AND pull_index = ? ORDER BY started_at DESC, rowid DESC`,
		pull.Owner, pull.Repo, pull.Index)
	if err != nil {
		return nil, fmt.Errorf("query review runs for %s: %w", pull, err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]model.ReviewRun, error) {
	runs := []model.ReviewRun{}

	for rows.Next() {
		var (
			run            model.ReviewRun
			action, status string
			event          string
			startedAt      string
			finishedAt     sql.NullString
		)

		if err := rows.Scan(
			&run.ID, &run.Pull.Owner, &run.Pull.Repo, &run.Pull.Index,
			&action, &status, &event, &run.FindingCount, &run.Error,
			&startedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review run: %w", err)
		}

		run.Action = model.ParseAction(action)
		run.Status = model.RunStatus(status)
		run.ReviewEvent = model.ReviewEvent(event)

		var err error
		run.StartedAt, err = parseTime(startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if finishedAt.Valid {
			run.FinishedAt, err = parseTime(finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review runs: %w", err)
	}

	return runs, nil
}

// formatTime renders t in UTC, or NULL for the zero time.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// parseTime parses a time string from SQLite, trying several common formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
