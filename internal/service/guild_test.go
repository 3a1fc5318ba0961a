package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/gitquest/internal/apperror"
	"github.com/sakif/gitquest/internal/model"
)

func TestGuildCreate(t *testing.T) {
	f := newFixture(t)
	f.chars.addCharacter("u1", model.ClassOrc, 100)

	guild, err := f.guildSvc.Create(context.Background(), "u1", "  The Night Shift  ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if guild.Name != "The Night Shift" {
		t.Errorf("Name = %q, want trimmed name", guild.Name)
	}
	if guild.OwnerID != "u1" {
		t.Errorf("OwnerID = %q, want u1", guild.OwnerID)
	}
	// The owner is enrolled on creation; their XP plus the founder badge
	// reward (+200) seeds the aggregate.
	if guild.TotalMembers != 1 || guild.TotalXP != 300 {
		t.Errorf("aggregates = (%d members, %d XP), want (1, 300)", guild.TotalMembers, guild.TotalXP)
	}
	if !f.achs.grants["u1"]["guild-founder"] {
		t.Error("founding a guild should grant the guild-founder achievement")
	}
	if got := f.chars.chars["u1"].TotalXP; got != 300 {
		t.Errorf("owner TotalXP = %d, want 100 + 200 badge reward", got)
	}
}

func TestGuildCreate_FounderPaidOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.chars.addCharacter("u1", model.ClassOrc, 100)

	if _, err := f.guildSvc.Create(ctx, "u1", "First Guild"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// A serial founder keeps the badge from the first guild; the second
	// founding pays nothing extra.
	second, err := f.guildSvc.Create(ctx, "u1", "Second Guild")
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if got := f.chars.chars["u1"].TotalXP; got != 300 {
		t.Errorf("owner TotalXP = %d, want a single 200 reward on top of 100", got)
	}
	if second.TotalXP != 300 {
		t.Errorf("second guild TotalXP = %d, want 300", second.TotalXP)
	}
}

func TestGuildCreate_Validation(t *testing.T) {
	f := newFixture(t)
	f.chars.addCharacter("u1", model.ClassOrc, 0)

	if _, err := f.guildSvc.Create(context.Background(), "u1", "   "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank name: error = %v, want validation", err)
	}
	long := strings.Repeat("x", MaxGuildNameLength+1)
	if _, err := f.guildSvc.Create(context.Background(), "u1", long); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("long name: error = %v, want validation", err)
	}
	// An owner without a character can't found a guild.
	if _, err := f.guildSvc.Create(context.Background(), "ghost", "Fine Name"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("characterless owner: error = %v, want not found", err)
	}
}

// The aggregate invariant: total XP is the exact sum over the CURRENT
// membership's characters, member count matches, an empty guild sums to
// zero.
func TestGuildRecalculate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.chars.addCharacter("u1", model.ClassOrc, 100)
	f.chars.addCharacter("u2", model.ClassWarrior, 250)
	f.chars.addCharacter("u3", model.ClassMage, 150)
	// u1 already holds the founder badge so creation grants nothing and
	// the sums below stay about membership.
	f.achs.grants["u1"] = map[string]bool{"guild-founder": true}

	guild, err := f.guildSvc.Create(ctx, "u1", "Raiders")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.guildSvc.Join(ctx, guild.ID, "u2"); err != nil {
		t.Fatalf("Join(u2) error = %v", err)
	}
	if err := f.guildSvc.Join(ctx, guild.ID, "u3"); err != nil {
		t.Fatalf("Join(u3) error = %v", err)
	}

	g := f.guilds.guilds[guild.ID]
	if g.TotalMembers != 3 || g.TotalXP != 500 {
		t.Errorf("aggregates = (%d, %d), want (3, 500)", g.TotalMembers, g.TotalXP)
	}

	// A member's XP changes; the recalculation reflects the committed
	// character rows, not a cached membership list.
	ch := f.chars.chars["u2"]
	if err := applyXP(ch, 50); err != nil {
		t.Fatalf("applyXP: %v", err)
	}
	if err := f.guildSvc.RecalculateForUser(ctx, "u2"); err != nil {
		t.Fatalf("RecalculateForUser() error = %v", err)
	}
	if g.TotalXP != 550 {
		t.Errorf("TotalXP = %d, want 550 after member gain", g.TotalXP)
	}

	// Departing members take their XP with them.
	if err := f.guildSvc.Leave(ctx, guild.ID, "u2"); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if g.TotalMembers != 2 || g.TotalXP != 250 {
		t.Errorf("after leave: (%d, %d), want (2, 250)", g.TotalMembers, g.TotalXP)
	}

	// Empty the guild entirely: the aggregate is zero, not stale.
	if err := f.guildSvc.Leave(ctx, guild.ID, "u3"); err != nil {
		t.Fatalf("Leave(u3) error = %v", err)
	}
	if err := f.guildSvc.Leave(ctx, guild.ID, "u1"); err != nil {
		t.Fatalf("Leave(u1) error = %v", err)
	}
	if g.TotalMembers != 0 || g.TotalXP != 0 {
		t.Errorf("empty guild: (%d, %d), want (0, 0)", g.TotalMembers, g.TotalXP)
	}
}

func TestGuildJoin_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.chars.addCharacter("u1", model.ClassOrc, 0)

	guild, err := f.guildSvc.Create(ctx, "u1", "Raiders")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// No character, no guild.
	if err := f.guildSvc.Join(ctx, guild.ID, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("characterless join: error = %v, want not found", err)
	}
	// Unknown guild.
	if err := f.guildSvc.Join(ctx, "guild-999", "u1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown guild: error = %v, want not found", err)
	}
	// Double join.
	if err := f.guildSvc.Join(ctx, guild.ID, "u1"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("double join: error = %v, want conflict", err)
	}
}

func TestGuildLeave_NotAMember(t *testing.T) {
	f := newFixture(t)
	f.chars.addCharacter("u1", model.ClassOrc, 0)
	guild, err := f.guildSvc.Create(context.Background(), "u1", "Raiders")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := f.guildSvc.Leave(context.Background(), guild.ID, "u2"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Leave(non-member) error = %v, want not found", err)
	}
}

func TestGuildMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.chars.addCharacter("u1", model.ClassOrc, 0)
	f.chars.addCharacter("u2", model.ClassMage, 0)

	guild, err := f.guildSvc.Create(ctx, "u1", "Raiders")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.guildSvc.Join(ctx, guild.ID, "u2"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	members, err := f.guildSvc.Members(ctx, guild.ID)
	if err != nil {
		t.Fatalf("Members() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("got %d members, want 2", len(members))
	}

	if _, err := f.guildSvc.Members(ctx, "guild-999"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Members(unknown) error = %v, want not found", err)
	}
}
