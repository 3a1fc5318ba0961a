// Package repository declares the persistence interfaces consumed by the
// service layer. The sqlite subpackage is the production implementation;
// the service tests substitute in-memory mocks. Services depend only on
// these interfaces — nothing above the repository layer imports
// database/sql.
package repository

import (
	"context"

	"github.com/sakif/gitquest/internal/model"
)

type UserRepository interface {
	// Upsert inserts a user keyed by GitHub ID, or refreshes the profile
	// (login, email, avatar, token) of an existing one. The model's ID and
	// timestamps are populated on return.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// ListUsers returns all users, ordered by creation time. Used by the
	// bulk reconciliation.
	ListUsers(ctx context.Context) ([]model.User, error)
}

type CharacterRepository interface {
	// CreateCharacter inserts a level-1 character together with the user's
	// empty stats row (last_sync_at NULL) in one transaction.
	CreateCharacter(ctx context.Context, ch *model.Character) error
	GetCharacterByUserID(ctx context.Context, userID string) (*model.Character, error)
	// UpdateCharacterXP persists total_xp, level, and current_xp.
	UpdateCharacterXP(ctx context.Context, ch *model.Character) error
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type StatsRepository interface {
	GetStats(ctx context.Context, userID string) (*model.UserStats, error)
	// ApplySync writes the post-reconciliation stats row and character XP
	// in a single transaction — the all-or-nothing write group of a sync.
	ApplySync(ctx context.Context, stats *model.UserStats, ch *model.Character) error
}

type GuildRepository interface {
	// CreateGuild inserts the guild and its owner's membership row.
	CreateGuild(ctx context.Context, g *model.Guild) error
	GetGuildByID(ctx context.Context, id string) (*model.Guild, error)
	AddMember(ctx context.Context, guildID, userID string) error
	RemoveMember(ctx context.Context, guildID, userID string) error
	// MemberIDs re-queries the CURRENT membership. Aggregate recomputation
	// must go through this, never a cached list.
	MemberIDs(ctx context.Context, guildID string) ([]string, error)
	// GuildIDsForUser returns every guild the user belongs to.
	GuildIDsForUser(ctx context.Context, userID string) ([]string, error)
	UpdateGuildTotals(ctx context.Context, guildID string, members int, totalXP int64) error
}

type AchievementRepository interface {
	GetAchievement(ctx context.Context, code string) (*model.Achievement, error)
	ListAchievements(ctx context.Context) ([]model.Achievement, error)
	// ApplyGrant records a grant if and only if none exists for the
	// (user, code) pair, and writes the character's updated XP in the
	// same transaction. Returns false (and no error, nothing written)
	// when the grant was already present — the at-most-once check lives
	// in the store, with the badge row and the reward committed together.
	ApplyGrant(ctx context.Context, userID, code string, ch *model.Character) (bool, error)
	ListGrants(ctx context.Context, userID string) ([]model.AchievementGrant, error)
}
