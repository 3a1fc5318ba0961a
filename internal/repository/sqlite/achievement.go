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

// compile-time check that *DB implements repository.AchievementRepository
var _ repository.AchievementRepository = (*DB)(nil)

// GetAchievement retrieves one catalog entry by code.
// Returns apperror.ErrNotFound for unknown codes.
func (db *DB) GetAchievement(ctx context.Context, code string) (*model.Achievement, error) {
	var a model.Achievement

	err := db.conn.QueryRowContext(ctx,
		`SELECT code, name, description, xp_reward FROM achievements WHERE code = ?`,
		code,
	).Scan(&a.Code, &a.Name, &a.Description, &a.XPReward)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("achievement", code)
		}
		return nil, fmt.Errorf("sqlite: getting achievement %s: %w", code, err)
	}

	return &a, nil
}

// ListAchievements returns the whole catalog.
func (db *DB) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT code, name, description, xp_reward FROM achievements ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing achievements: %w", err)
	}
	defer rows.Close()

	var out []model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.Code, &a.Name, &a.Description, &a.XPReward); err != nil {
			return nil, fmt.Errorf("sqlite: scanning achievement row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating achievement rows: %w", err)
	}

	return out, nil
}

// ApplyGrant records a grant for (userID, code) and, when the grant is new,
// writes the character's updated XP triple — both in a single transaction.
//
// INSERT OR IGNORE against the composite primary key makes the existence
// check and the insert ONE statement: if two requests race, exactly one
// sees rowsAffected == 1 and its XP write commits. Putting the badge row
// and the reward in the same transaction means a user can never hold one
// without the other.
//
// Returns false when the user already held the achievement; nothing is
// written in that case.
func (db *DB) ApplyGrant(ctx context.Context, userID, code string, ch *model.Character) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning grant transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO achievement_grants (user_id, code, granted_at) VALUES (?, ?, ?)`,
		userID, code, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting grant %s/%s: %w", userID, code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected inserting grant: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	ch.UpdatedAt = time.Now()
	res, err = tx.ExecContext(ctx,
		`UPDATE characters SET total_xp = ?, level = ?, current_xp = ?, updated_at = ?
		 WHERE id = ?`,
		ch.TotalXP, ch.Level, ch.CurrentXP, ch.UpdatedAt, ch.ID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: updating character %s in grant: %w", ch.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("sqlite: rows affected for character %s: %w", ch.ID, err)
	} else if n == 0 {
		return false, apperror.NotFound("character", ch.ID)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing grant %s/%s: %w", userID, code, err)
	}
	return true, nil
}

// ListGrants returns all achievements a user has unlocked, oldest first.
func (db *DB) ListGrants(ctx context.Context, userID string) ([]model.AchievementGrant, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, code, granted_at FROM achievement_grants
		 WHERE user_id = ? ORDER BY granted_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing grants for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.AchievementGrant
	for rows.Next() {
		var g model.AchievementGrant
		if err := rows.Scan(&g.UserID, &g.Code, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning grant row: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating grant rows: %w", err)
	}

	return out, nil
}
