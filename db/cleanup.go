package db

import (
	"context"
	"fmt"
	"time"
)

// PruneResult reports what a prune removed.
type PruneResult struct {
	Deleted  int64
	Duration time.Duration
}

// PruneHistory deletes records created before now minus olderThan and then
// runs VACUUM. The deletion is committed even if VACUUM fails; the error is
// still returned.
func (r *Repository) PruneHistory(ctx context.Context, olderThan time.Duration) (PruneResult, error) {
	start := time.Now()
	var result PruneResult

	if olderThan < 0 {
		return result, fmt.Errorf("retention must be non-negative, got %s", olderThan)
	}

	conn, err := r.conn()
	if err != nil {
		return result, err
	}

	cutoff := start.Add(-olderThan).UnixMilli()
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	res, err := tx.ExecContext(ctx, "DELETE FROM generation_history WHERE created_at < ?", cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to delete from generation_history: %w", err)
	}
	result.Deleted, err = res.RowsAffected()
	if err != nil {
		return result, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// VACUUM cannot run inside a transaction
	if _, err := conn.ExecContext(ctx, "VACUUM"); err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("prune succeeded but VACUUM failed: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}
