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

// compile-time check that *DB implements repository.GuildRepository
var _ repository.GuildRepository = (*DB)(nil)

// CreateGuild inserts the guild and enrolls the owner as its first member
// in one transaction. The caller is expected to run the aggregate
// recalculation afterwards so total_members/total_xp reflect the owner.
func (db *DB) CreateGuild(ctx context.Context, g *model.Guild) error {
	g.ID = xid.New().String()
	g.CreatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning guild transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO guilds (id, name, owner_id, total_members, total_xp, created_at)
		 VALUES (?, ?, ?, 0, 0, ?)`,
		g.ID, g.Name, g.OwnerID, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting guild %q: %w", g.Name, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO guild_members (guild_id, user_id, joined_at) VALUES (?, ?, ?)`,
		g.ID, g.OwnerID, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: enrolling owner in guild %s: %w", g.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing guild creation: %w", err)
	}
	return nil
}

// GetGuildByID retrieves a guild.
// Returns apperror.ErrNotFound if it doesn't exist.
func (db *DB) GetGuildByID(ctx context.Context, id string) (*model.Guild, error) {
	var g model.Guild

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, owner_id, total_members, total_xp, created_at
		 FROM guilds WHERE id = ?`,
		id,
	).Scan(&g.ID, &g.Name, &g.OwnerID, &g.TotalMembers, &g.TotalXP, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("guild", id)
		}
		return nil, fmt.Errorf("sqlite: getting guild %s: %w", id, err)
	}

	return &g, nil
}

// AddMember enrolls a user in a guild.
// Returns apperror.ErrConflict if they're already a member.
func (db *DB) AddMember(ctx context.Context, guildID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO guild_members (guild_id, user_id, joined_at) VALUES (?, ?, ?)`,
		guildID, userID, time.Now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "PRIMARY") {
			return apperror.Conflict("guild membership", userID)
		}
		return fmt.Errorf("sqlite: adding member %s to guild %s: %w", userID, guildID, err)
	}
	return nil
}

// RemoveMember removes a user from a guild.
// Returns apperror.ErrNotFound if they weren't a member.
func (db *DB) RemoveMember(ctx context.Context, guildID, userID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM guild_members WHERE guild_id = ? AND user_id = ?`,
		guildID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing member %s from guild %s: %w", userID, guildID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected removing member: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("guild membership", userID)
	}
	return nil
}

// MemberIDs returns the current membership of a guild. Always re-queried —
// the aggregate maintainer must never trust a cached list.
func (db *DB) MemberIDs(ctx context.Context, guildID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM guild_members WHERE guild_id = ? ORDER BY joined_at ASC`,
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members of guild %s: %w", guildID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating member rows: %w", err)
	}

	return ids, nil
}

// GuildIDsForUser returns every guild the user currently belongs to.
func (db *DB) GuildIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT guild_id FROM guild_members WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing guilds for user %s: %w", userID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning guild id row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating guild id rows: %w", err)
	}

	return ids, nil
}

// UpdateGuildTotals persists the recomputed aggregates for a guild.
func (db *DB) UpdateGuildTotals(ctx context.Context, guildID string, members int, totalXP int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE guilds SET total_members = ?, total_xp = ? WHERE id = ?`,
		members, totalXP, guildID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating totals for guild %s: %w", guildID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected updating guild totals: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("guild", guildID)
	}
	return nil
}
