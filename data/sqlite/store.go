package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ncobase/askflow/job"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `id, kind, state, result, error_code, error_message, cancel_requested, created_at, updated_at`

// Store implements job.Store on a SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ job.Store = (*Store)(nil)

// NewStore creates the jobs table if needed and returns the store.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			state TEXT NOT NULL,
			result TEXT,
			error_code TEXT,
			error_message TEXT,
			cancel_requested INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_state_updated ON jobs (state, updated_at);
	`)
	return err
}

func (s *Store) Create(ctx context.Context, id string, kind job.Kind) (*job.Record, error) {
	rec := job.NewRecord(id, kind, s.now().UTC())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, kind, state, cancel_requested, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, string(rec.Kind), string(rec.State), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", job.ErrConflict, id)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (*job.Record, error) {
	return getRecord(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryer, id string) (*job.Record, error) {
	row := q.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM jobs WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	return rec, err
}

// Transition reads, validates and conditionally updates the row in one
// transaction. The state guard in the UPDATE keeps it a check-and-set even
// if another connection slipped in.
func (s *Store) Transition(ctx context.Context, id string, from []job.State, to job.State, outcome job.Outcome) (*job.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := getRecord(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	prev := rec.State
	if err := job.ApplyTransition(rec, from, to, outcome, s.now().UTC()); err != nil {
		return nil, err
	}

	var result, code, message sql.NullString
	if rec.Result != nil {
		result = sql.NullString{String: string(rec.Result), Valid: true}
	}
	if rec.Error != nil {
		code = sql.NullString{String: string(rec.Error.Code), Valid: true}
		message = sql.NullString{String: rec.Error.Message, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET state = ?, result = ?, error_code = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`, string(rec.State), result, code, message, formatTime(rec.UpdatedAt), id, string(prev))
	if err != nil {
		return nil, fmt.Errorf("sqlite: update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, fmt.Errorf("%w: job %s changed concurrently", job.ErrInvalidTransition, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return rec, nil
}

func (s *Store) RequestCancel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET cancel_requested = 1, updated_at = ?
		WHERE id = ? AND cancel_requested = 0 AND state NOT IN (?, ?, ?)
	`, formatTime(s.now().UTC()), id, terminalArgs[0], terminalArgs[1], terminalArgs[2])
	if err != nil {
		return fmt.Errorf("sqlite: request cancel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// either already requested, terminal or unknown
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	var requested bool
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, id).Scan(&requested)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: read cancel flag: %w", err)
	}
	return requested, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListActive(ctx context.Context) ([]*job.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM jobs
		WHERE state NOT IN (?, ?, ?)
		ORDER BY created_at
	`, terminalArgs...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list active jobs: %w", err)
	}
	defer rows.Close()

	var out []*job.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int, error) {
	args := append([]any{}, terminalArgs...)
	args = append(args, formatTime(before.UTC()))
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM jobs WHERE state IN (?, ?, ?) AND updated_at < ?
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge jobs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Close() error {
	return s.db.Close()
}

var terminalArgs = []any{
	string(job.StateFinished),
	string(job.StateFailed),
	string(job.StateStopped),
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*job.Record, error) {
	var (
		rec                   job.Record
		kind, state           string
		result, code, message sql.NullString
		cancelRequested       bool
		createdAt, updatedAt  string
	)
	if err := row.Scan(&rec.ID, &kind, &state, &result, &code, &message, &cancelRequested, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if rec.Kind, err = job.ParseKind(kind); err != nil {
		return nil, err
	}
	if rec.State, err = job.ParseState(state); err != nil {
		return nil, err
	}
	if result.Valid {
		rec.Result = json.RawMessage(result.String)
	}
	if code.Valid {
		rec.Error = &job.Failure{Code: job.FailureCode(code.String), Message: message.String}
	}
	rec.CancelRequested = cancelRequested
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
