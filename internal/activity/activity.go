// Package activity defines the interface to the external activity source —
// the system that knows how many commits, pull requests, and issues a user
// has produced. The production implementation (GitHub's search API) lives
// in the github subpackage; tests substitute an in-memory fake.
package activity

import (
	"context"
	"time"
)

// Stats is a snapshot of per-user activity counters. For lifetime queries
// the counters are cumulative; for ranged queries they cover only the
// requested window.
type Stats struct {
	Commits int64 `json:"commits"`
	PRs     int64 `json:"prs"`
	Issues  int64 `json:"issues"`
}

// Source fetches activity counts for a user.
//
// Implementations must map their failure modes onto the apperror taxonomy:
// ErrCredentialExpired when the token is rejected, ErrRateLimited when
// throttled, ErrNotFound when the identity is unknown, ErrSourceUnavailable
// for anything transient. The sync service relies on those categories to
// decide between aborting, degrading, and surfacing re-auth.
type Source interface {
	// LifetimeStats returns the user's cumulative counters.
	LifetimeStats(ctx context.Context, login, token string) (Stats, error)

	// StatsInRange returns the user's counters restricted to activity
	// between from and to.
	StatsInRange(ctx context.Context, login, token string, from, to time.Time) (Stats, error)
}
