package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/gitquest/internal/activity"
	"github.com/sakif/gitquest/internal/apperror"
	"github.com/sakif/gitquest/internal/model"
	"github.com/sakif/gitquest/internal/repository"
	"github.com/sakif/gitquest/internal/xp"
)

const (
	// SyncCooldown is the minimum interval between syncs for one user.
	// It throttles the double-sync race (two requests both reading stale
	// totals) and keeps us polite toward GitHub's rate limits. Within one
	// process the per-user mutex below closes the race completely; the
	// cooldown is what survives a multi-process deployment.
	SyncCooldown = 5 * time.Minute

	// RetroactiveWindow is how far before signup the first sync still
	// counts activity. The week preceding signup is likely what motivated
	// the user to join; everything older is baseline.
	RetroactiveWindow = 7 * 24 * time.Hour

	// bulkPacingDelay spaces out users during a bulk sync. A courtesy to
	// the GitHub API, not a correctness requirement.
	bulkPacingDelay = 500 * time.Millisecond
)

// SyncService is the reconciliation engine: it converts a user's GitHub
// activity into XP while enforcing the baseline policy.
//
// Per-user state machine, persisted via last_sync_at and the baseline:
//
//	NEVER_SYNCED  last_sync_at NULL. Establish the baseline: fetch
//	              lifetime totals, fetch the signup-anchored retroactive
//	              window, absorb everything outside the window into the
//	              baseline, grant XP for the window only.
//	NEEDS_FIX     previously synced, but baseline == totals on commits
//	              and PRs while commits > 0 — an earlier sync failed to
//	              grant any initial window. Repair by lowering the
//	              baseline by a freshly computed trailing window,
//	              idempotently (compute, compare, conditionally write).
//	RECONCILED    steady state: grant XP for the simple increment of the
//	              stored totals, update totals.
//
// Every successful pass persists stats + character in one transaction
// (repository.StatsRepository.ApplySync) and then recalculates guild
// aggregates. A failed upstream fetch of the lifetime totals aborts with
// nothing written; only the window fetch is allowed to degrade to zero.
type SyncService struct {
	users        repository.UserRepository
	chars        repository.CharacterRepository
	stats        repository.StatsRepository
	source       activity.Source
	guilds       *GuildService
	achievements *AchievementService
	logger       *slog.Logger

	// now is a clock hook so tests can pin time. Defaults to time.Now.
	now func() time.Time
	// sleep is the bulk pacing hook. Defaults to a ctx-aware sleep.
	sleep func(ctx context.Context, d time.Duration)

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-user sync locks
}

func NewSyncService(
	users repository.UserRepository,
	chars repository.CharacterRepository,
	stats repository.StatsRepository,
	source activity.Source,
	guilds *GuildService,
	achievements *AchievementService,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		users:        users,
		chars:        chars,
		stats:        stats,
		source:       source,
		guilds:       guilds,
		achievements: achievements,
		logger:       logger,
		now:          time.Now,
		sleep:        sleepCtx,
		locks:        map[string]*sync.Mutex{},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// userLock returns the mutex serializing syncs for one user. Locks are
// never removed; the map is bounded by the user count.
func (s *SyncService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// SyncResult reports one reconciliation's outcome.
type SyncResult struct {
	XPGranted int64    `json:"xpGranted"`
	NewLevel  int      `json:"newLevel"`
	LeveledUp bool     `json:"leveledUp"`
	Activity  xp.Delta `json:"activity"` // the counts that were granted XP
	FirstSync bool     `json:"firstSync"`
	Repaired  bool     `json:"repaired"`
}

// SyncUser reconciles one user, honouring the cooldown.
func (s *SyncService) SyncUser(ctx context.Context, userID string) (*SyncResult, error) {
	return s.syncUser(ctx, userID, false)
}

// ForceSyncUser reconciles one user ignoring the cooldown. Admin paths
// only — user-triggered syncs always go through SyncUser.
func (s *SyncService) ForceSyncUser(ctx context.Context, userID string) (*SyncResult, error) {
	return s.syncUser(ctx, userID, true)
}

func (s *SyncService) syncUser(ctx context.Context, userID string, force bool) (*SyncResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ch, err := s.chars.GetCharacterByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.stats.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if !force && st.LastSyncAt != nil {
		if elapsed := now.Sub(*st.LastSyncAt); elapsed < SyncCooldown {
			return nil, apperror.Cooldown(SyncCooldown - elapsed)
		}
	}

	// Required fetch: lifetime totals. Any failure here aborts the sync
	// with nothing persisted — a timeout is a failed attempt, never "zero
	// activity".
	lifetime, err := s.source.LifetimeStats(ctx, user.Login, user.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("fetching lifetime stats for %s: %w", user.Login, err)
	}

	var (
		granted  xp.Delta
		result   = &SyncResult{}
		newStats = &model.UserStats{UserID: userID}
	)

	switch {
	case st.LastSyncAt == nil:
		// NEVER_SYNCED: establish the baseline.
		result.FirstSync = true
		window := s.windowedActivity(ctx, user,
			user.CreatedAt.Add(-RetroactiveWindow), now)
		window = clampWindow(window, lifetime)

		newStats.TotalCommits = lifetime.Commits
		newStats.TotalPRs = lifetime.PRs
		newStats.TotalIssues = lifetime.Issues
		newStats.BaselineCommits = max(0, lifetime.Commits-window.Commits)
		newStats.BaselinePRs = max(0, lifetime.PRs-window.PRs)
		newStats.BaselineIssues = max(0, lifetime.Issues-window.Issues)

		granted = window

	case needsBaselineFix(st):
		// NEEDS_FIX: an earlier first sync granted nothing. Recompute a
		// trailing window and lower the baseline by it — but only if that
		// actually changes the baseline, so running the repair twice is a
		// no-op.
		result.Repaired = true
		window := s.windowedActivity(ctx, user, now.Add(-RetroactiveWindow), now)
		window = clampWindow(window, lifetime)

		candidate := model.UserStats{
			BaselineCommits: max(0, lifetime.Commits-window.Commits),
			BaselinePRs:     max(0, lifetime.PRs-window.PRs),
			BaselineIssues:  max(0, lifetime.Issues-window.Issues),
		}

		// Grant the amount the baseline drops by PLUS the increment since
		// the stored totals. The drop is the missed window; the increment
		// is activity produced after the failed sync, which must not be
		// swallowed by advancing the totals below. When the window covers
		// both, the two terms sum to exactly the window. If the stored
		// baseline is already at or below the candidate and nothing new
		// happened, the whole repair is a zero grant.
		granted = xp.Delta{
			Commits: max(0, st.BaselineCommits-candidate.BaselineCommits) +
				max(0, lifetime.Commits-st.TotalCommits),
			PRs: max(0, st.BaselinePRs-candidate.BaselinePRs) +
				max(0, lifetime.PRs-st.TotalPRs),
			Issues: max(0, st.BaselineIssues-candidate.BaselineIssues) +
				max(0, lifetime.Issues-st.TotalIssues),
		}

		newStats.TotalCommits = max(lifetime.Commits, st.TotalCommits)
		newStats.TotalPRs = max(lifetime.PRs, st.TotalPRs)
		newStats.TotalIssues = max(lifetime.Issues, st.TotalIssues)
		newStats.BaselineCommits = min(st.BaselineCommits, candidate.BaselineCommits)
		newStats.BaselinePRs = min(st.BaselinePRs, candidate.BaselinePRs)
		newStats.BaselineIssues = min(st.BaselineIssues, candidate.BaselineIssues)

	default:
		// RECONCILED: grant the increment since the stored totals. A
		// backwards-moving upstream counter (external data correction)
		// clamps to zero rather than revoking XP.
		granted = xp.Delta{
			Commits: max(0, lifetime.Commits-st.TotalCommits),
			PRs:     max(0, lifetime.PRs-st.TotalPRs),
			Issues:  max(0, lifetime.Issues-st.TotalIssues),
		}

		newStats.TotalCommits = max(lifetime.Commits, st.TotalCommits)
		newStats.TotalPRs = max(lifetime.PRs, st.TotalPRs)
		newStats.TotalIssues = max(lifetime.Issues, st.TotalIssues)
		newStats.BaselineCommits = st.BaselineCommits
		newStats.BaselinePRs = st.BaselinePRs
		newStats.BaselineIssues = st.BaselineIssues
	}

	if err := validateStats(newStats); err != nil {
		return nil, err
	}
	newStats.LastSyncAt = &now

	oldLevel := ch.Level
	grant := xp.ForDelta(granted, ch.Class)
	if err := applyXP(ch, grant); err != nil {
		return nil, err
	}

	// The single logical write group: stats + character together.
	if err := s.stats.ApplySync(ctx, newStats, ch); err != nil {
		return nil, fmt.Errorf("persisting sync for %s: %w", user.Login, err)
	}

	result.XPGranted = grant
	result.NewLevel = ch.Level
	result.LeveledUp = ch.Level > oldLevel
	result.Activity = granted

	s.logger.Info("user reconciled",
		slog.String("login", user.Login),
		slog.Int64("xpGranted", grant),
		slog.Int("level", ch.Level),
		slog.Bool("firstSync", result.FirstSync),
		slog.Bool("repaired", result.Repaired),
	)

	if grant > 0 {
		if err := s.guilds.RecalculateForUser(ctx, userID); err != nil {
			return nil, fmt.Errorf("recalculating guilds after sync: %w", err)
		}
	}

	s.autoGrants(ctx, userID, newStats)

	return result, nil
}

// windowedActivity fetches the bounded-window counts, degrading to zero on
// failure. The window grant is a bonus on top of an otherwise consistent
// sync — losing it for one pass beats failing the pass (and the NEEDS_FIX
// detection will top the user up on a later sync if the zero stuck).
func (s *SyncService) windowedActivity(ctx context.Context, user *model.User, from, to time.Time) xp.Delta {
	stats, err := s.source.StatsInRange(ctx, user.Login, user.GitHubToken, from, to)
	if err != nil {
		s.logger.Warn("windowed activity fetch failed, counting zero",
			slog.String("login", user.Login),
			slog.String("error", err.Error()),
		)
		return xp.Delta{}
	}
	return xp.Delta{Commits: stats.Commits, PRs: stats.PRs, Issues: stats.Issues}
}

// autoGrants awards the achievements the sync itself can prove. Grant is
// idempotent, so these fire harmlessly on every pass. Failures are logged,
// not propagated — the sync already succeeded.
func (s *SyncService) autoGrants(ctx context.Context, userID string, st *model.UserStats) {
	if _, err := s.achievements.Grant(ctx, userID, AchievementFirstSync); err != nil {
		s.logger.Warn("first-sync grant failed", slog.String("error", err.Error()))
	}
	if st.TotalCommits-st.BaselineCommits >= CenturionCommits {
		if _, err := s.achievements.Grant(ctx, userID, AchievementCenturion); err != nil {
			s.logger.Warn("centurion grant failed", slog.String("error", err.Error()))
		}
	}
}

// SyncReport is one user's entry in a bulk reconciliation report.
type SyncReport struct {
	Username  string `json:"username"`
	Success   bool   `json:"success"`
	XPGranted int64  `json:"xpGranted,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SyncAll reconciles every registered user sequentially, collecting
// per-user outcomes. One user's failure never aborts the batch, and the
// method itself only errors when the user list can't be loaded at all.
func (s *SyncService) SyncAll(ctx context.Context) ([]SyncReport, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users for bulk sync: %w", err)
	}

	reports := make([]SyncReport, 0, len(users))
	for i, u := range users {
		if i > 0 {
			s.sleep(ctx, bulkPacingDelay)
		}
		if ctx.Err() != nil {
			break
		}

		res, err := s.ForceSyncUser(ctx, u.ID)
		if err != nil {
			// Users who never made a character are not sync candidates —
			// don't clutter the report with them.
			if errors.Is(err, apperror.ErrNotFound) {
				continue
			}
			reports = append(reports, SyncReport{
				Username: u.Login,
				Success:  false,
				Error:    err.Error(),
			})
			continue
		}
		reports = append(reports, SyncReport{
			Username:  u.Login,
			Success:   true,
			XPGranted: res.XPGranted,
		})
	}

	s.logger.Info("bulk sync finished",
		slog.Int("users", len(users)),
		slog.Int("reported", len(reports)),
	)

	return reports, nil
}

// needsBaselineFix detects the degenerate state left by a first sync that
// granted nothing: baseline == totals on both commits and PRs while the
// user demonstrably has commits. Detected, never assumed — a user whose
// window genuinely was empty and who has produced nothing since also
// matches, and for them the repair computes a zero adjustment.
func needsBaselineFix(st *model.UserStats) bool {
	return st.BaselineCommits == st.TotalCommits &&
		st.BaselinePRs == st.TotalPRs &&
		st.TotalCommits > 0
}

// clampWindow caps windowed counts at the lifetime totals. The search API
// can momentarily disagree with itself between the two queries; a window
// larger than the lifetime would drive the baseline negative.
func clampWindow(window xp.Delta, lifetime activity.Stats) xp.Delta {
	return xp.Delta{
		Commits: min(window.Commits, lifetime.Commits),
		PRs:     min(window.PRs, lifetime.PRs),
		Issues:  min(window.Issues, lifetime.Issues),
	}
}

// validateStats refuses to persist a stats row violating baseline <= total.
func validateStats(st *model.UserStats) error {
	if st.BaselineCommits < 0 || st.BaselinePRs < 0 || st.BaselineIssues < 0 ||
		st.BaselineCommits > st.TotalCommits ||
		st.BaselinePRs > st.TotalPRs ||
		st.BaselineIssues > st.TotalIssues {
		return apperror.Invariant(fmt.Sprintf(
			"stats row for %s violates baseline bounds: totals=(%d,%d,%d) baselines=(%d,%d,%d)",
			st.UserID,
			st.TotalCommits, st.TotalPRs, st.TotalIssues,
			st.BaselineCommits, st.BaselinePRs, st.BaselineIssues))
	}
	return nil
}
