package model

import "time"

// Class is a character's playstyle. It selects which XP multipliers apply
// to the user's GitHub activity (see internal/xp).
type Class string

const (
	ClassOrc     Class = "orc"
	ClassWarrior Class = "warrior"
	ClassMage    Class = "mage"
)

// Valid reports whether c is one of the known classes.
func (c Class) Valid() bool {
	switch c {
	case ClassOrc, ClassWarrior, ClassMage:
		return true
	}
	return false
}

// Character is a user's game entity — exactly one per user.
//
// Level and CurrentXP are DERIVED fields: after every mutation,
// Level = xp.LevelForXP(TotalXP) and CurrentXP = TotalXP minus the
// threshold of that level. They are stored (not recomputed on read) so the
// leaderboard query stays a single table scan, but they are only ever
// written by code that recomputes them from TotalXP. TotalXP itself never
// decreases in normal operation.
type Character struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Class     Class     `json:"class"     db:"class"`
	Level     int       `json:"level"     db:"level"`
	TotalXP   int64     `json:"totalXp"   db:"total_xp"`
	CurrentXP int64     `json:"currentXp" db:"current_xp"` // progress within the current level
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// LeaderboardEntry is a character row joined with its owner's public
// profile, as returned by the leaderboard query.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
	Class     Class  `json:"class"`
	Level     int    `json:"level"`
	TotalXP   int64  `json:"totalXp"`
}
