package model

import "time"

// Achievement is a catalog entry: a named badge with a fixed XP reward.
// The catalog is seeded by the migrations and treated as read-only at
// runtime.
type Achievement struct {
	Code        string `json:"code"        db:"code"`
	Name        string `json:"name"        db:"name"`
	Description string `json:"description" db:"description"`
	XPReward    int64  `json:"xpReward"    db:"xp_reward"`
}

// AchievementGrant records that a user has unlocked an achievement.
// The (UserID, Code) pair is the primary key — at most one grant can ever
// exist, which is what makes granting idempotent.
type AchievementGrant struct {
	UserID    string    `json:"userId"    db:"user_id"`
	Code      string    `json:"code"      db:"code"`
	GrantedAt time.Time `json:"grantedAt" db:"granted_at"`
}
