// Package xp holds the pure game math: the level curve, the class
// multiplier table, and the activity-to-XP calculator.
//
// Everything in this package is a deterministic function of its inputs —
// no I/O, no clocks, no globals mutated at runtime. The services layer
// computes XP here and persists the results; nothing else in the codebase
// is allowed to derive levels or XP on its own.
package xp

// MaxLevel is the highest level a character can reach. XP keeps
// accumulating past the last threshold but the level is capped here.
const MaxLevel = 100

// ThresholdForLevel returns the cumulative XP required to reach the given
// level: 100·(level-1)².
//
// The curve is quadratic so early levels come quickly (0, 100, 400, 900 …)
// and late levels demand sustained activity. The only properties the rest
// of the system relies on are that it is strictly increasing and that
// level 1 costs zero — the exact shape is a difficulty knob.
func ThresholdForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	n := int64(level - 1)
	return 100 * n * n
}

// LevelForXP returns the level a character with the given cumulative XP
// holds: the largest level whose threshold is <= totalXP.
//
// Because the curve is closed-form we could invert it with a square root,
// but a forward scan over 100 levels is just as fast, immune to float
// rounding at the boundaries, and obviously correct against
// ThresholdForLevel.
func LevelForXP(totalXP int64) int {
	if totalXP < 0 {
		totalXP = 0
	}
	level := 1
	for level < MaxLevel && totalXP >= ThresholdForLevel(level+1) {
		level++
	}
	return level
}

// CurrentWithinLevel returns the XP a character has accumulated inside its
// current level — the "progress bar" value.
func CurrentWithinLevel(totalXP int64) int64 {
	return totalXP - ThresholdForLevel(LevelForXP(totalXP))
}

// ToNextLevel returns the XP still needed to reach the next level, or 0 at
// the level cap.
func ToNextLevel(totalXP int64) int64 {
	level := LevelForXP(totalXP)
	if level >= MaxLevel {
		return 0
	}
	return ThresholdForLevel(level+1) - totalXP
}
