package model

import "time"

// Guild groups players under a shared banner and competes on the guild
// leaderboard via its aggregate XP.
//
// TotalXP and TotalMembers are cached aggregates: TotalXP must equal the
// sum of TotalXP over the characters of all current members, and
// TotalMembers the membership count. They are recomputed from a fresh
// membership query whenever any member's XP or the membership changes —
// transient staleness between those points is tolerated, silent drift is
// not.
type Guild struct {
	ID           string    `json:"id"           db:"id"`
	Name         string    `json:"name"         db:"name"`
	OwnerID      string    `json:"ownerId"      db:"owner_id"`
	TotalMembers int       `json:"totalMembers" db:"total_members"`
	TotalXP      int64     `json:"totalXp"      db:"total_xp"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// GuildMember is one row of a guild's membership.
type GuildMember struct {
	GuildID  string    `json:"guildId"  db:"guild_id"`
	UserID   string    `json:"userId"   db:"user_id"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}
