package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
	CREATE SCHEMA IF NOT EXISTS field;
	CREATE TABLE IF NOT EXISTS field.submissions (
		key            TEXT PRIMARY KEY,
		kind           TEXT NOT NULL,
		reference      TEXT NOT NULL DEFAULT '',
		amount         DOUBLE PRECISION NOT NULL DEFAULT 0,
		status         TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		error          TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS submissions_created_at_idx ON field.submissions (created_at DESC);`

// PostgresJournal provides database operations for the submission journal
type PostgresJournal struct {
	db *sql.DB
}

// NewPostgresJournal initializes a new journal
func NewPostgresJournal(db *sql.DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// Open connects with lib/pq and checks the connection
func Open(ctx context.Context, conn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the journal table if missing
func (r *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// Begin records a pending submission. A failed one with the same key is reopened.
func (r *PostgresJournal) Begin(ctx context.Context, s *Submission) error {
	query := `
		INSERT INTO field.submissions (key, kind, reference, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE
			SET status = 'pending', error = '', amount = EXCLUDED.amount, updated_at = CURRENT_TIMESTAMP
			WHERE field.submissions.status = 'failed'
		RETURNING status, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Key, string(s.Kind), s.Reference, s.Amount).
		Scan(&s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrDuplicateSubmission
	}
	if err != nil {
		return fmt.Errorf("failed to begin submission: %w", err)
	}
	return nil
}

// Complete marks a submission as accepted by the backend
func (r *PostgresJournal) Complete(ctx context.Context, key, transactionID string) error {
	query := `
		UPDATE field.submissions
		SET status = 'completed', transaction_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE key = $1`
	return r.exec(ctx, "complete", query, key, transactionID)
}

// Fail marks a submission as failed so it may be retried
func (r *PostgresJournal) Fail(ctx context.Context, key string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	query := `
		UPDATE field.submissions
		SET status = 'failed', error = $2, updated_at = CURRENT_TIMESTAMP
		WHERE key = $1`
	return r.exec(ctx, "fail", query, key, msg)
}

func (r *PostgresJournal) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s submission: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s submission: %w", op, err)
	}
	if n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// List retrieves the newest submissions
func (r *PostgresJournal) List(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT key, kind, reference, amount, status, transaction_id, error, created_at, updated_at
		FROM field.submissions
		ORDER BY created_at DESC, key DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.Key, &s.Kind, &s.Reference, &s.Amount, &s.Status, &s.TransactionID, &s.Error, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}
