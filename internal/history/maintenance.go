package history

import (
	"context"
	"fmt"
	"time"
)

// MaintenanceResult summarizes one maintenance pass.
type MaintenanceResult struct {
	Archived       int64
	OrphansRemoved int64
}

// Maintain archives terminal rows older than the retention window and drops
// participant rows whose raid no longer exists in the main table.
func (s *Store) Maintain(ctx context.Context, retention time.Duration) (MaintenanceResult, error) {
	var result MaintenanceResult
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin maintenance tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO raid_history_archive (
            id, ship_type, viewer_count, required_crew, base_multiplier,
            final_multiplier, total_invested, total_rewards, status,
            failure_reason, start_time, end_time, created_at, updated_at,
            archived_at
        )
        SELECT id, ship_type, viewer_count, required_crew, base_multiplier,
               final_multiplier, total_invested, total_rewards, status,
               failure_reason, start_time, end_time, created_at, updated_at, ?
        FROM raid_history
        WHERE end_time IS NOT NULL AND end_time < ?`,
		now, cutoff,
	); err != nil {
		return result, fmt.Errorf("archive sessions: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM raid_history WHERE end_time IS NOT NULL AND end_time < ?`,
		cutoff,
	)
	if err != nil {
		return result, fmt.Errorf("delete archived sessions: %w", err)
	}
	if result.Archived, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("archive rows affected: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`DELETE FROM raid_participants
         WHERE raid_id NOT IN (SELECT id FROM raid_history)`,
	)
	if err != nil {
		return result, fmt.Errorf("delete orphan participants: %w", err)
	}
	if result.OrphansRemoved, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("orphan rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit maintenance: %w", err)
	}
	return result, nil
}
