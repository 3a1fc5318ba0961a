package model

import "time"

// UserStats is the store's record of a user's last-known GitHub activity
// counters plus a baseline.
//
// THE BASELINE:
// Lifetime GitHub totals include years of history from before the user
// joined. Counting all of it would hand a veteran an enormous XP dump on
// signup. Instead, the first sync records a baseline — the portion of each
// counter that is deliberately excluded — and only activity above the
// baseline has ever been converted to XP. The invariant Baseline* <= Total*
// holds for every persisted row.
//
// LastSyncAt is nil until the first reconciliation runs. "Never synced" is
// a distinct state from "synced and found nothing": the first sync is the
// one that establishes the baseline, so the two must not be conflated.
type UserStats struct {
	UserID          string     `json:"userId"          db:"user_id"`
	TotalCommits    int64      `json:"totalCommits"    db:"total_commits"`
	TotalPRs        int64      `json:"totalPrs"        db:"total_prs"`
	TotalIssues     int64      `json:"totalIssues"     db:"total_issues"`
	BaselineCommits int64      `json:"baselineCommits" db:"baseline_commits"`
	BaselinePRs     int64      `json:"baselinePrs"     db:"baseline_prs"`
	BaselineIssues  int64      `json:"baselineIssues"  db:"baseline_issues"`
	LastSyncAt      *time.Time `json:"lastSyncAt"      db:"last_sync_at"`
}
