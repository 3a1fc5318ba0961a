package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/gitquest/internal/apperror"
	"github.com/sakif/gitquest/internal/model"
	"github.com/sakif/gitquest/internal/repository"
)

// compile-time check that *DB implements repository.CharacterRepository
var _ repository.CharacterRepository = (*DB)(nil)

// CreateCharacter inserts a new character and the matching empty stats row
// in one transaction.
//
// The stats row is born here — with last_sync_at NULL — because character
// creation is the moment a user enters the game. Creating the two rows
// together means the sync service can rely on the stats row existing and
// never needs an upsert-or-create dance on its hot path.
//
// Returns apperror.ErrConflict if the user already has a character (the
// UNIQUE constraint on user_id).
func (db *DB) CreateCharacter(ctx context.Context, ch *model.Character) error {
	now := time.Now()
	ch.ID = xid.New().String()
	ch.Level = 1
	ch.TotalXP = 0
	ch.CurrentXP = 0
	ch.CreatedAt = now
	ch.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning character transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO characters (id, user_id, class, level, total_xp, current_xp, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.UserID, ch.Class, ch.Level, ch.TotalXP, ch.CurrentXP, ch.CreatedAt, ch.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return apperror.Conflict("character", ch.UserID)
		}
		return fmt.Errorf("sqlite: inserting character for user %s: %w", ch.UserID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_stats (user_id) VALUES (?)`,
		ch.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting stats row for user %s: %w", ch.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing character creation: %w", err)
	}
	return nil
}

// GetCharacterByUserID retrieves a user's character.
// Returns apperror.ErrNotFound if the user hasn't created one.
func (db *DB) GetCharacterByUserID(ctx context.Context, userID string) (*model.Character, error) {
	var ch model.Character

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, class, level, total_xp, current_xp, created_at, updated_at
		 FROM characters WHERE user_id = ?`,
		userID,
	).Scan(
		&ch.ID,
		&ch.UserID,
		&ch.Class,
		&ch.Level,
		&ch.TotalXP,
		&ch.CurrentXP,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("character", userID)
		}
		return nil, fmt.Errorf("sqlite: getting character for user %s: %w", userID, err)
	}

	return &ch, nil
}

// UpdateCharacterXP persists the XP triple (total, level, current).
// Callers are responsible for having recomputed level and current_xp from
// the curve — this method just writes.
func (db *DB) UpdateCharacterXP(ctx context.Context, ch *model.Character) error {
	ch.UpdatedAt = time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE characters SET total_xp = ?, level = ?, current_xp = ?, updated_at = ?
		 WHERE id = ?`,
		ch.TotalXP, ch.Level, ch.CurrentXP, ch.UpdatedAt, ch.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating character %s: %w", ch.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for character %s: %w", ch.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("character", ch.ID)
	}
	return nil
}

// Leaderboard returns the top characters by total XP with their owners'
// public profiles joined in. Rank is assigned here from the row order.
func (db *DB) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.login, u.avatar_url, c.class, c.level, c.total_xp
		 FROM characters c
		 JOIN users u ON u.id = c.user_id
		 ORDER BY c.total_xp DESC, u.login ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.Login, &e.AvatarURL, &e.Class, &e.Level, &e.TotalXP); err != nil {
			return nil, fmt.Errorf("sqlite: scanning leaderboard row: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating leaderboard rows: %w", err)
	}

	return entries, nil
}
