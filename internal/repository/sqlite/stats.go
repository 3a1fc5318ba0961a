package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/gitquest/internal/apperror"
	"github.com/sakif/gitquest/internal/model"
	"github.com/sakif/gitquest/internal/repository"
)

// compile-time check that *DB implements repository.StatsRepository
var _ repository.StatsRepository = (*DB)(nil)

// GetStats retrieves a user's activity stats row.
// Returns apperror.ErrNotFound if the user has no character yet (the row
// is created alongside the character).
func (db *DB) GetStats(ctx context.Context, userID string) (*model.UserStats, error) {
	var s model.UserStats
	var lastSync sql.NullTime

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, total_commits, total_prs, total_issues,
		        baseline_commits, baseline_prs, baseline_issues, last_sync_at
		 FROM user_stats WHERE user_id = ?`,
		userID,
	).Scan(
		&s.UserID,
		&s.TotalCommits,
		&s.TotalPRs,
		&s.TotalIssues,
		&s.BaselineCommits,
		&s.BaselinePRs,
		&s.BaselineIssues,
		&lastSync,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user stats", userID)
		}
		return nil, fmt.Errorf("sqlite: getting stats for user %s: %w", userID, err)
	}

	if lastSync.Valid {
		t := lastSync.Time
		s.LastSyncAt = &t
	}

	return &s, nil
}

// ApplySync writes the outcome of one reconciliation — the refreshed stats
// row and the character's XP triple — in a single transaction.
//
// This is the "single logical write group" of a sync: either both rows land
// or neither does. A sync must never leave totals advanced but XP ungranted
// (the delta would be lost forever) or XP granted twice (if totals failed
// to advance, the next sync would re-grant the same delta).
func (db *DB) ApplySync(ctx context.Context, stats *model.UserStats, ch *model.Character) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning sync transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE user_stats
		 SET total_commits = ?, total_prs = ?, total_issues = ?,
		     baseline_commits = ?, baseline_prs = ?, baseline_issues = ?,
		     last_sync_at = ?
		 WHERE user_id = ?`,
		stats.TotalCommits, stats.TotalPRs, stats.TotalIssues,
		stats.BaselineCommits, stats.BaselinePRs, stats.BaselineIssues,
		stats.LastSyncAt,
		stats.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating stats for user %s: %w", stats.UserID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: rows affected for stats %s: %w", stats.UserID, err)
	} else if n == 0 {
		return apperror.NotFound("user stats", stats.UserID)
	}

	ch.UpdatedAt = time.Now()
	res, err = tx.ExecContext(ctx,
		`UPDATE characters SET total_xp = ?, level = ?, current_xp = ?, updated_at = ?
		 WHERE id = ?`,
		ch.TotalXP, ch.Level, ch.CurrentXP, ch.UpdatedAt, ch.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating character %s in sync: %w", ch.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: rows affected for character %s: %w", ch.ID, err)
	} else if n == 0 {
		return apperror.NotFound("character", ch.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing sync for user %s: %w", stats.UserID, err)
	}
	return nil
}
