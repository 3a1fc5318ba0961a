package xp

import (
	"math"

	"github.com/sakif/gitquest/internal/model"
)

// ForActivity converts a count of one activity kind into XP for a class:
// floor(count × base rate × multiplier).
//
// Rounding is ALWAYS floor. Rounding up would let fractional scraps
// accumulate into free XP across many small syncs; flooring means repeated
// small grants can only ever undershoot what one big grant would give.
// Negative counts (which would mean the upstream counters went backwards)
// contribute zero rather than negative XP.
func ForActivity(activity Activity, count int64, class model.Class) int64 {
	if count <= 0 {
		return 0
	}
	raw := float64(count*baseRate(activity)) * Multiplier(class, activity)
	return int64(math.Floor(raw))
}

// Delta is a bundle of per-activity counts, used both for windowed activity
// and for incremental sync diffs.
type Delta struct {
	Commits int64 `json:"commits"`
	PRs     int64 `json:"prs"`
	Issues  int64 `json:"issues"`
}

// IsZero reports whether no activity is present.
func (d Delta) IsZero() bool {
	return d.Commits == 0 && d.PRs == 0 && d.Issues == 0
}

// ForDelta totals the XP a class earns for a bundle of activity counts.
// Each axis is floored independently, matching how the axes would be
// granted if they were synced one at a time.
func ForDelta(d Delta, class model.Class) int64 {
	return ForActivity(ActivityCommits, d.Commits, class) +
		ForActivity(ActivityPRs, d.PRs, class) +
		ForActivity(ActivityIssues, d.Issues, class)
}
