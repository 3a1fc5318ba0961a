package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/gitquest/internal/model"
	"github.com/sakif/gitquest/internal/repository"
)

// Well-known achievement codes granted automatically by the services.
// The catalog rows are seeded by the sqlite migrations.
const (
	AchievementFirstSync    = "first-sync"
	AchievementGuildFounder = "guild-founder"
	AchievementCenturion    = "centurion"
)

// CenturionCommits is the counted-commit threshold for the centurion
// achievement. Counted means above the baseline — pre-signup history
// doesn't qualify.
const CenturionCommits = 100

// AchievementService grants one-shot XP rewards.
type AchievementService struct {
	achievements repository.AchievementRepository
	chars        repository.CharacterRepository
	guilds       *GuildService
	logger       *slog.Logger
}

func NewAchievementService(
	achievements repository.AchievementRepository,
	chars repository.CharacterRepository,
	guilds *GuildService,
	logger *slog.Logger,
) *AchievementService {
	return &AchievementService{
		achievements: achievements,
		chars:        chars,
		guilds:       guilds,
		logger:       logger,
	}
}

// GrantResult reports the outcome of a grant attempt. Granted == false
// means the user already held the achievement — an expected outcome, not
// an error.
type GrantResult struct {
	Granted    bool   `json:"granted"`
	Code       string `json:"code"`
	XPReward   int64  `json:"xpReward,omitempty"`
	NewTotalXP int64  `json:"newTotalXp,omitempty"`
	NewLevel   int    `json:"newLevel,omitempty"`
}

// Grant awards the named achievement to the user, at most once ever.
//
// The dedup check is the INSERT OR IGNORE in the repository: recording the
// grant and checking for a prior one is a single statement, so two
// concurrent requests for the same (user, code) resolve to exactly one
// winner. The grant row and the XP reward land in one transaction — a user
// can never hold the badge without the reward or the reverse.
func (s *AchievementService) Grant(ctx context.Context, userID, code string) (*GrantResult, error) {
	ach, err := s.achievements.GetAchievement(ctx, code)
	if err != nil {
		return nil, err
	}

	ch, err := s.chars.GetCharacterByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := applyXP(ch, ach.XPReward); err != nil {
		return nil, err
	}
	inserted, err := s.achievements.ApplyGrant(ctx, userID, code, ch)
	if err != nil {
		return nil, fmt.Errorf("recording achievement grant: %w", err)
	}
	if !inserted {
		return &GrantResult{Granted: false, Code: code}, nil
	}

	// Mandatory post-condition of any XP mutation.
	if err := s.guilds.RecalculateForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("recalculating guilds after grant: %w", err)
	}

	s.logger.Info("achievement granted",
		slog.String("userID", userID),
		slog.String("code", code),
		slog.Int64("xpReward", ach.XPReward),
		slog.Int("newLevel", ch.Level),
	)

	return &GrantResult{
		Granted:    true,
		Code:       code,
		XPReward:   ach.XPReward,
		NewTotalXP: ch.TotalXP,
		NewLevel:   ch.Level,
	}, nil
}

// CatalogEntry is an achievement with the caller's unlock state.
type CatalogEntry struct {
	model.Achievement
	Unlocked bool `json:"unlocked"`
}

// Catalog lists every achievement, marking the ones userID has unlocked.
// Pass an empty userID for the anonymous view (nothing unlocked).
func (s *AchievementService) Catalog(ctx context.Context, userID string) ([]CatalogEntry, error) {
	all, err := s.achievements.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing achievements: %w", err)
	}

	unlocked := map[string]bool{}
	if userID != "" {
		grants, err := s.achievements.ListGrants(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("listing grants: %w", err)
		}
		for _, g := range grants {
			unlocked[g.Code] = true
		}
	}

	out := make([]CatalogEntry, 0, len(all))
	for _, a := range all {
		out = append(out, CatalogEntry{Achievement: a, Unlocked: unlocked[a.Code]})
	}
	return out, nil
}
