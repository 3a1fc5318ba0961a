// Package service contains the business logic layer: the sync
// (reconciliation) engine, the guild aggregate maintainer, achievement
// grants, character management, and authentication.
//
// Services receive repository interfaces and a logger — never HTTP types,
// never *sql.DB. Handlers translate HTTP to service calls; repositories
// translate service calls to SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/gitquest/internal/apperror"
	"github.com/sakif/gitquest/internal/model"
	"github.com/sakif/gitquest/internal/repository"
)

const MaxGuildNameLength = 50

// GuildService owns guild lifecycle and the aggregate invariant:
// guild.total_xp == Σ member characters' total_xp, and total_members ==
// |members|, for the CURRENT membership.
//
// RecalculateForUser is the post-condition of every XP mutation. The sync
// and achievement services call it after committing a character update;
// forgetting that call is the easiest way to ship a drifting guild
// leaderboard, which is why no code outside this package ever writes guild
// totals directly.
type GuildService struct {
	guilds       repository.GuildRepository
	chars        repository.CharacterRepository
	achievements *AchievementService
	logger       *slog.Logger
}

func NewGuildService(
	guilds repository.GuildRepository,
	chars repository.CharacterRepository,
	logger *slog.Logger,
) *GuildService {
	return &GuildService{
		guilds: guilds,
		chars:  chars,
		logger: logger,
	}
}

// SetAchievementService wires the achievement service in after
// construction. The two services reference each other — grants refresh
// guild aggregates, founding a guild awards a badge — so one side has to
// be bound late.
func (s *GuildService) SetAchievementService(achievements *AchievementService) {
	s.achievements = achievements
}

// Create validates and creates a guild owned by ownerID, who becomes its
// first member. The owner must already have a character — a guild of
// characterless users would have an undefined aggregate.
func (s *GuildService) Create(ctx context.Context, ownerID, name string) (*model.Guild, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "guild name is required")
	}
	if len(name) > MaxGuildNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("guild name must be %d characters or less", MaxGuildNameLength))
	}

	if _, err := s.chars.GetCharacterByUserID(ctx, ownerID); err != nil {
		return nil, err
	}

	guild := &model.Guild{
		Name:    name,
		OwnerID: ownerID,
	}
	if err := s.guilds.CreateGuild(ctx, guild); err != nil {
		return nil, fmt.Errorf("creating guild: %w", err)
	}

	// The owner was just enrolled; fold their XP into the fresh aggregate.
	if err := s.Recalculate(ctx, guild.ID); err != nil {
		return nil, err
	}

	// Founding a guild earns its badge. The grant is idempotent, so a
	// serial guild founder only gets paid once. A failed grant doesn't
	// undo the guild — the next founding attempt would retry it.
	if s.achievements != nil {
		if _, err := s.achievements.Grant(ctx, ownerID, AchievementGuildFounder); err != nil {
			s.logger.Warn("guild founder grant failed",
				slog.String("userID", ownerID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("guild created",
		slog.String("guildID", guild.ID),
		slog.String("owner", ownerID),
		slog.String("name", name),
	)

	return s.guilds.GetGuildByID(ctx, guild.ID)
}

// Get returns a guild by ID.
func (s *GuildService) Get(ctx context.Context, guildID string) (*model.Guild, error) {
	return s.guilds.GetGuildByID(ctx, guildID)
}

// Members returns the current member user IDs of a guild.
func (s *GuildService) Members(ctx context.Context, guildID string) ([]string, error) {
	if _, err := s.guilds.GetGuildByID(ctx, guildID); err != nil {
		return nil, err
	}
	return s.guilds.MemberIDs(ctx, guildID)
}

// Join enrolls a user (who must have a character) in a guild and refreshes
// the aggregates.
func (s *GuildService) Join(ctx context.Context, guildID, userID string) error {
	if _, err := s.guilds.GetGuildByID(ctx, guildID); err != nil {
		return err
	}
	if _, err := s.chars.GetCharacterByUserID(ctx, userID); err != nil {
		return err
	}
	if err := s.guilds.AddMember(ctx, guildID, userID); err != nil {
		return err
	}

	s.logger.Info("guild member joined",
		slog.String("guildID", guildID),
		slog.String("userID", userID),
	)

	return s.Recalculate(ctx, guildID)
}

// Leave removes a user from a guild and refreshes the aggregates. The
// departing member's XP leaves the total with them.
func (s *GuildService) Leave(ctx context.Context, guildID, userID string) error {
	if err := s.guilds.RemoveMember(ctx, guildID, userID); err != nil {
		return err
	}

	s.logger.Info("guild member left",
		slog.String("guildID", guildID),
		slog.String("userID", userID),
	)

	return s.Recalculate(ctx, guildID)
}

// RecalculateForUser refreshes the aggregates of every guild the user
// belongs to. Called after any mutation of that user's character XP.
func (s *GuildService) RecalculateForUser(ctx context.Context, userID string) error {
	guildIDs, err := s.guilds.GuildIDsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing guilds for recalculation: %w", err)
	}

	for _, id := range guildIDs {
		if err := s.Recalculate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Recalculate recomputes one guild's totals from scratch: a fresh
// membership query, then an exact sum over those members' characters.
//
// There is no incremental add/subtract here on purpose. A full recompute
// means that even if two members' updates race, whichever recalculation
// runs last writes a total derived from the committed character rows —
// last writer wins with a CORRECT value. An empty guild sums to zero.
func (s *GuildService) Recalculate(ctx context.Context, guildID string) error {
	memberIDs, err := s.guilds.MemberIDs(ctx, guildID)
	if err != nil {
		return fmt.Errorf("listing members for recalculation: %w", err)
	}

	var total int64
	for _, userID := range memberIDs {
		ch, err := s.chars.GetCharacterByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				// A member without a character contributes nothing. Join
				// requires one, so this only happens on hand-edited data.
				s.logger.Warn("guild member has no character",
					slog.String("guildID", guildID),
					slog.String("userID", userID),
				)
				continue
			}
			return fmt.Errorf("loading member character: %w", err)
		}
		total += ch.TotalXP
	}

	if err := s.guilds.UpdateGuildTotals(ctx, guildID, len(memberIDs), total); err != nil {
		return fmt.Errorf("persisting guild totals: %w", err)
	}

	s.logger.Debug("guild totals recalculated",
		slog.String("guildID", guildID),
		slog.Int("members", len(memberIDs)),
		slog.Int64("totalXP", total),
	)

	return nil
}
