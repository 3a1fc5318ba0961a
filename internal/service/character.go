package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/gitquest/internal/apperror"
	"github.com/sakif/gitquest/internal/model"
	"github.com/sakif/gitquest/internal/repository"
	"github.com/sakif/gitquest/internal/xp"
)

const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// CharacterService handles character creation and read paths (own
// character, leaderboard). XP mutations live in SyncService and
// AchievementService, not here.
type CharacterService struct {
	chars  repository.CharacterRepository
	stats  repository.StatsRepository
	logger *slog.Logger
}

func NewCharacterService(
	chars repository.CharacterRepository,
	stats repository.StatsRepository,
	logger *slog.Logger,
) *CharacterService {
	return &CharacterService{
		chars:  chars,
		stats:  stats,
		logger: logger,
	}
}

// Create makes the user's character with the chosen class. One per user —
// a second create returns apperror.ErrConflict. The user's stats row is
// created alongside it with last_sync_at NULL, so the first sync knows to
// establish a baseline.
func (s *CharacterService) Create(ctx context.Context, userID string, class model.Class) (*model.Character, error) {
	if !class.Valid() {
		return nil, apperror.ValidationFailed("class",
			fmt.Sprintf("class must be one of orc, warrior, mage (got %q)", class))
	}

	ch := &model.Character{
		UserID: userID,
		Class:  class,
	}
	if err := s.chars.CreateCharacter(ctx, ch); err != nil {
		return nil, err
	}

	s.logger.Info("character created",
		slog.String("userID", userID),
		slog.String("class", string(class)),
	)

	return ch, nil
}

// CharacterView is the character plus derived progress numbers and the
// stats counters the profile page shows.
type CharacterView struct {
	Character   *model.Character `json:"character"`
	XPToNext    int64            `json:"xpToNextLevel"`
	Stats       *model.UserStats `json:"stats"`
	NeverSynced bool             `json:"neverSynced"`
}

// GetOwn returns the caller's character with progress info.
func (s *CharacterService) GetOwn(ctx context.Context, userID string) (*CharacterView, error) {
	ch, err := s.chars.GetCharacterByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.stats.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &CharacterView{
		Character:   ch,
		XPToNext:    xp.ToNextLevel(ch.TotalXP),
		Stats:       st,
		NeverSynced: st.LastSyncAt == nil,
	}, nil
}

// Leaderboard returns the top characters by total XP. The limit is clamped
// to a sane range so a caller can't request the whole table.
func (s *CharacterService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	entries, err := s.chars.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("loading leaderboard: %w", err)
	}
	return entries, nil
}

// applyXP adds a grant to a character and recomputes the derived fields
// from the level curve. Shared by the sync and achievement services —
// every XP mutation in the system funnels through here.
//
// Returns apperror.ErrInvariant (refusing the mutation) if the result
// would violate level/current consistency; that cannot happen while
// xp.LevelForXP and xp.ThresholdForLevel agree, so tripping it means a
// bug, not bad user data.
func applyXP(ch *model.Character, grant int64) error {
	if grant < 0 {
		return apperror.Invariant(fmt.Sprintf("negative XP grant %d for character %s", grant, ch.ID))
	}

	total := ch.TotalXP + grant
	level := xp.LevelForXP(total)
	current := total - xp.ThresholdForLevel(level)

	if current < 0 || level < 1 {
		return apperror.Invariant(fmt.Sprintf(
			"derived fields inconsistent for character %s: total=%d level=%d current=%d",
			ch.ID, total, level, current))
	}

	ch.TotalXP = total
	ch.Level = level
	ch.CurrentXP = current
	return nil
}
