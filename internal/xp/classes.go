package xp

import "github.com/sakif/gitquest/internal/model"

// Activity is the kind of GitHub activity being converted to XP.
type Activity string

const (
	ActivityCommits Activity = "commits"
	ActivityPRs     Activity = "pullRequests"
	ActivityIssues  Activity = "issuesResolved"
)

// Base XP rates per activity. Multipliers scale these per class; the rates
// themselves are the same for everyone and are fixed at grant time —
// changing them later does not rewrite XP that was already persisted.
const (
	BaseRateCommit int64 = 10
	BaseRatePR     int64 = 50
	BaseRateIssue  int64 = 30
)

// MaxMultiplier bounds every entry in the class table. No class may earn
// more than double the base rate on any axis — the cap is what keeps a
// multiplier tweak from turning into an XP faucet.
const MaxMultiplier = 2.0

// classMultipliers is the static per-class, per-activity multiplier table.
//
// The classes are deliberately lopsided: orcs grind commits, warriors land
// pull requests, mages close issues. Values may be below 1 (a penalty on
// the class's off-axis) but must stay within (0, MaxMultiplier] — there is
// a test that walks the whole table and checks the bound.
var classMultipliers = map[model.Class]map[Activity]float64{
	model.ClassOrc: {
		ActivityCommits: 1.25,
		ActivityPRs:     0.9,
		ActivityIssues:  1.0,
	},
	model.ClassWarrior: {
		ActivityCommits: 1.0,
		ActivityPRs:     1.25,
		ActivityIssues:  0.9,
	},
	model.ClassMage: {
		ActivityCommits: 0.9,
		ActivityPRs:     1.1,
		ActivityIssues:  1.5,
	},
}

// Multiplier returns the XP multiplier for the given class and activity.
// It is a total function: any unknown class or activity gets 1.0, never an
// error. Callers don't need to care whether a combination is in the table.
func Multiplier(class model.Class, activity Activity) float64 {
	if m, ok := classMultipliers[class]; ok {
		if v, ok := m[activity]; ok {
			return v
		}
	}
	return 1.0
}

// baseRate returns the base XP rate for an activity, 0 for unknown kinds.
func baseRate(activity Activity) int64 {
	switch activity {
	case ActivityCommits:
		return BaseRateCommit
	case ActivityPRs:
		return BaseRatePR
	case ActivityIssues:
		return BaseRateIssue
	}
	return 0
}
