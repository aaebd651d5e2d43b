package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by repository calls after the database was closed.
var ErrClosed = errors.New("database connection is closed")

// DefaultHistoryLimit is used by RecentHistory when limit <= 0.
const DefaultHistoryLimit = 20

// HistoryRecord is one row of generation_history: the outcome of a single
// prompt.
type HistoryRecord struct {
	ID           int64
	RunID        string // shared by every prompt of one invocation
	Prompt       string
	Status       string // "done", "failed_generate" or "failed_download"
	Path         string // output file, empty on failure
	ErrorKind    string // "transport", "remote", "protocol", "filesystem"
	ErrorMessage string
	Bytes        int64
	DurationMS   int64
	Model        string
	Size         string
	CreatedAt    time.Time
}

// Repository reads and writes generation_history.
type Repository struct {
	db *Database
}

// NewRepository creates a repository over db.
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn() (*sql.DB, error) {
	if r.db == nil {
		return nil, ErrClosed
	}
	conn := r.db.DB()
	if conn == nil {
		return nil, ErrClosed
	}
	return conn, nil
}

// InsertHistory stores rec and returns its ID. A zero CreatedAt is set to
// the current time.
func (r *Repository) InsertHistory(ctx context.Context, rec HistoryRecord) (int64, error) {
	conn, err := r.conn()
	if err != nil {
		return 0, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO generation_history (
			run_id, prompt, status, path, error_kind, error_message,
			bytes, duration_ms, model, size, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := conn.ExecContext(ctx, query,
		rec.RunID,
		rec.Prompt,
		rec.Status,
		nullString(rec.Path),
		nullString(rec.ErrorKind),
		nullString(rec.ErrorMessage),
		rec.Bytes,
		rec.DurationMS,
		nullString(rec.Model),
		nullString(rec.Size),
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert generation history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// RecentHistory returns up to limit records, newest first.
func (r *Repository) RecentHistory(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return r.queryHistory(ctx, `
		SELECT id, run_id, prompt, status, COALESCE(path, ''),
			   COALESCE(error_kind, ''), COALESCE(error_message, ''),
			   bytes, duration_ms, COALESCE(model, ''), COALESCE(size, ''),
			   created_at
		FROM generation_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
}

// HistoryByRun returns the records of one run in insertion order.
func (r *Repository) HistoryByRun(ctx context.Context, runID string) ([]HistoryRecord, error) {
	return r.queryHistory(ctx, `
		SELECT id, run_id, prompt, status, COALESCE(path, ''),
			   COALESCE(error_kind, ''), COALESCE(error_message, ''),
			   bytes, duration_ms, COALESCE(model, ''), COALESCE(size, ''),
			   created_at
		FROM generation_history
		WHERE run_id = ?
		ORDER BY id`, runID)
}

// CountHistory returns the number of stored records.
func (r *Repository) CountHistory(ctx context.Context) (int64, error) {
	conn, err := r.conn()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM generation_history").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count generation history: %w", err)
	}
	return count, nil
}

func (r *Repository) queryHistory(ctx context.Context, query string, args ...any) ([]HistoryRecord, error) {
	conn, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var createdAt int64

		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Prompt,
			&rec.Status,
			&rec.Path,
			&rec.ErrorKind,
			&rec.ErrorMessage,
			&rec.Bytes,
			&rec.DurationMS,
			&rec.Model,
			&rec.Size,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation history row: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation history rows: %w", err)
	}

	return records, nil
}

// nullString stores an empty string as NULL.
func nullString(s string) any {
	if s == "" {
		return sql.NullString{}
	}
	return s
}
