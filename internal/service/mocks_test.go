package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/sakif/gitquest/internal/activity"
	"github.com/sakif/gitquest/internal/apperror"
	"github.com/sakif/gitquest/internal/model"
)

// The fakes below are in-memory implementations of the repository
// interfaces and the activity source. Hand-written fakes (not a mock
// framework) keep the tests dependency-free and make the simulated
// behavior visible right here.

// ---------------------------------------------------------------------
// users

type fakeUserRepo struct {
	users   map[string]*model.User
	order   []string // insertion order, for ListUsers
	listErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) addUser(id, login string, createdAt time.Time) *model.User {
	u := &model.User{
		ID:          id,
		GitHubID:    int64(len(f.users) + 1),
		Login:       login,
		GitHubToken: "gho_test_" + login,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	f.users[id] = u
	f.order = append(f.order, id)
	return u
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		f.order = append(f.order, user.ID)
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.User, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.users[id])
	}
	return out, nil
}

// ---------------------------------------------------------------------
// characters

type fakeCharRepo struct {
	chars     map[string]*model.Character // keyed by userID
	stats     *fakeStatsRepo              // CreateCharacter also makes the stats row
	updateErr error
	lastLimit int // records the limit Leaderboard was called with
}

func newFakeCharRepo(stats *fakeStatsRepo) *fakeCharRepo {
	return &fakeCharRepo{chars: map[string]*model.Character{}, stats: stats}
}

func (f *fakeCharRepo) addCharacter(userID string, class model.Class, totalXP int64) *model.Character {
	ch := &model.Character{
		ID:      "char-" + userID,
		UserID:  userID,
		Class:   class,
		Level:   1,
		TotalXP: 0,
	}
	f.chars[userID] = ch
	if totalXP > 0 {
		if err := applyXP(ch, totalXP); err != nil {
			panic(err)
		}
	}
	if f.stats != nil {
		f.stats.rows[userID] = &model.UserStats{UserID: userID}
	}
	return ch
}

func (f *fakeCharRepo) CreateCharacter(ctx context.Context, ch *model.Character) error {
	if _, ok := f.chars[ch.UserID]; ok {
		return apperror.Conflict("character", ch.UserID)
	}
	ch.ID = "char-" + ch.UserID
	ch.Level = 1
	ch.CreatedAt = time.Now()
	ch.UpdatedAt = ch.CreatedAt
	copied := *ch
	f.chars[ch.UserID] = &copied
	if f.stats != nil {
		f.stats.rows[ch.UserID] = &model.UserStats{UserID: ch.UserID}
	}
	return nil
}

func (f *fakeCharRepo) GetCharacterByUserID(ctx context.Context, userID string) (*model.Character, error) {
	ch, ok := f.chars[userID]
	if !ok {
		return nil, apperror.NotFound("character", userID)
	}
	copied := *ch
	return &copied, nil
}

func (f *fakeCharRepo) UpdateCharacterXP(ctx context.Context, ch *model.Character) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.chars[ch.UserID]
	if !ok {
		return apperror.NotFound("character", ch.UserID)
	}
	stored.TotalXP = ch.TotalXP
	stored.Level = ch.Level
	stored.CurrentXP = ch.CurrentXP
	return nil
}

func (f *fakeCharRepo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	f.lastLimit = limit
	chars := make([]*model.Character, 0, len(f.chars))
	for _, ch := range f.chars {
		chars = append(chars, ch)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i].TotalXP > chars[j].TotalXP })
	if len(chars) > limit {
		chars = chars[:limit]
	}
	out := make([]model.LeaderboardEntry, 0, len(chars))
	for i, ch := range chars {
		out = append(out, model.LeaderboardEntry{
			Rank:    i + 1,
			Login:   ch.UserID,
			Class:   ch.Class,
			Level:   ch.Level,
			TotalXP: ch.TotalXP,
		})
	}
	return out, nil
}

// ---------------------------------------------------------------------
// stats

type fakeStatsRepo struct {
	rows     map[string]*model.UserStats
	chars    *fakeCharRepo // ApplySync writes the character too
	applyErr error
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{rows: map[string]*model.UserStats{}}
}

func (f *fakeStatsRepo) GetStats(ctx context.Context, userID string) (*model.UserStats, error) {
	st, ok := f.rows[userID]
	if !ok {
		return nil, apperror.NotFound("user stats", userID)
	}
	copied := *st
	if st.LastSyncAt != nil {
		ts := *st.LastSyncAt
		copied.LastSyncAt = &ts
	}
	return &copied, nil
}

func (f *fakeStatsRepo) ApplySync(ctx context.Context, stats *model.UserStats, ch *model.Character) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	copied := *stats
	f.rows[stats.UserID] = &copied
	if f.chars != nil {
		return f.chars.UpdateCharacterXP(ctx, ch)
	}
	return nil
}

// ---------------------------------------------------------------------
// guilds

type fakeGuildRepo struct {
	guilds  map[string]*model.Guild
	members map[string][]string // guildID → userIDs
	nextID  int
}

func newFakeGuildRepo() *fakeGuildRepo {
	return &fakeGuildRepo{
		guilds:  map[string]*model.Guild{},
		members: map[string][]string{},
	}
}

func (f *fakeGuildRepo) CreateGuild(ctx context.Context, g *model.Guild) error {
	f.nextID++
	g.ID = fmt.Sprintf("guild-%d", f.nextID)
	g.CreatedAt = time.Now()
	copied := *g
	f.guilds[g.ID] = &copied
	f.members[g.ID] = []string{g.OwnerID}
	return nil
}

func (f *fakeGuildRepo) GetGuildByID(ctx context.Context, id string) (*model.Guild, error) {
	g, ok := f.guilds[id]
	if !ok {
		return nil, apperror.NotFound("guild", id)
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGuildRepo) AddMember(ctx context.Context, guildID, userID string) error {
	for _, id := range f.members[guildID] {
		if id == userID {
			return apperror.Conflict("guild member", userID)
		}
	}
	f.members[guildID] = append(f.members[guildID], userID)
	return nil
}

func (f *fakeGuildRepo) RemoveMember(ctx context.Context, guildID, userID string) error {
	ids := f.members[guildID]
	for i, id := range ids {
		if id == userID {
			f.members[guildID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("guild member", userID)
}

func (f *fakeGuildRepo) MemberIDs(ctx context.Context, guildID string) ([]string, error) {
	return append([]string(nil), f.members[guildID]...), nil
}

func (f *fakeGuildRepo) GuildIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var out []string
	for guildID, ids := range f.members {
		for _, id := range ids {
			if id == userID {
				out = append(out, guildID)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeGuildRepo) UpdateGuildTotals(ctx context.Context, guildID string, members int, totalXP int64) error {
	g, ok := f.guilds[guildID]
	if !ok {
		return apperror.NotFound("guild", guildID)
	}
	g.TotalMembers = members
	g.TotalXP = totalXP
	return nil
}

// ---------------------------------------------------------------------
// achievements

type fakeAchievementRepo struct {
	catalog  map[string]*model.Achievement
	grants   map[string]map[string]bool // userID → code → granted
	chars    *fakeCharRepo              // ApplyGrant writes the character too
	grantErr error
}

// newFakeAchievementRepo seeds the same catalog the migrations do.
func newFakeAchievementRepo(chars *fakeCharRepo) *fakeAchievementRepo {
	return &fakeAchievementRepo{
		catalog: map[string]*model.Achievement{
			"first-sync":    {Code: "first-sync", Name: "First Steps", XPReward: 100},
			"contributor":   {Code: "contributor", Name: "Contributor", XPReward: 300},
			"guild-founder": {Code: "guild-founder", Name: "Guild Founder", XPReward: 200},
			"centurion":     {Code: "centurion", Name: "Centurion", XPReward: 500},
		},
		grants: map[string]map[string]bool{},
		chars:  chars,
	}
}

func (f *fakeAchievementRepo) GetAchievement(ctx context.Context, code string) (*model.Achievement, error) {
	a, ok := f.catalog[code]
	if !ok {
		return nil, apperror.NotFound("achievement", code)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAchievementRepo) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	codes := make([]string, 0, len(f.catalog))
	for code := range f.catalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]model.Achievement, 0, len(codes))
	for _, code := range codes {
		out = append(out, *f.catalog[code])
	}
	return out, nil
}

func (f *fakeAchievementRepo) ApplyGrant(ctx context.Context, userID, code string, ch *model.Character) (bool, error) {
	if f.grantErr != nil {
		return false, f.grantErr
	}
	if f.grants[userID] == nil {
		f.grants[userID] = map[string]bool{}
	}
	if f.grants[userID][code] {
		return false, nil
	}
	// Grant row and XP write commit together, like the real store.
	if f.chars != nil {
		if err := f.chars.UpdateCharacterXP(ctx, ch); err != nil {
			return false, err
		}
	}
	f.grants[userID][code] = true
	return true, nil
}

func (f *fakeAchievementRepo) ListGrants(ctx context.Context, userID string) ([]model.AchievementGrant, error) {
	codes := make([]string, 0, len(f.grants[userID]))
	for code := range f.grants[userID] {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]model.AchievementGrant, 0, len(codes))
	for _, code := range codes {
		out = append(out, model.AchievementGrant{UserID: userID, Code: code})
	}
	return out, nil
}

// ---------------------------------------------------------------------
// activity source

type fakeSource struct {
	lifetime map[string]activity.Stats // keyed by login
	window   map[string]activity.Stats
	errs     map[string]error // lifetime fetch error per login
	windowed map[string]error // window fetch error per login

	lifetimeCalls int
	windowCalls   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lifetime: map[string]activity.Stats{},
		window:   map[string]activity.Stats{},
		errs:     map[string]error{},
		windowed: map[string]error{},
	}
}

func (f *fakeSource) LifetimeStats(ctx context.Context, login, token string) (activity.Stats, error) {
	f.lifetimeCalls++
	if err := f.errs[login]; err != nil {
		return activity.Stats{}, err
	}
	return f.lifetime[login], nil
}

func (f *fakeSource) StatsInRange(ctx context.Context, login, token string, from, to time.Time) (activity.Stats, error) {
	f.windowCalls++
	if err := f.windowed[login]; err != nil {
		return activity.Stats{}, err
	}
	return f.window[login], nil
}

// ---------------------------------------------------------------------
// fixture

// testLogger discards output. Pass SLOG_TEST=1 semantics by swapping this
// for a text handler when debugging a test.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture bundles a fully wired service graph over the fakes, with the
// sync's clock pinned and its pacing sleep disabled.
type fixture struct {
	users  *fakeUserRepo
	chars  *fakeCharRepo
	stats  *fakeStatsRepo
	guilds *fakeGuildRepo
	achs   *fakeAchievementRepo
	source *fakeSource

	now time.Time

	guildSvc *GuildService
	achSvc   *AchievementService
	syncSvc  *SyncService
	charSvc  *CharacterService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stats := newFakeStatsRepo()
	chars := newFakeCharRepo(stats)
	stats.chars = chars

	f := &fixture{
		users:  newFakeUserRepo(),
		chars:  chars,
		stats:  stats,
		guilds: newFakeGuildRepo(),
		achs:   newFakeAchievementRepo(chars),
		source: newFakeSource(),
		now:    time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	logger := testLogger()
	f.guildSvc = NewGuildService(f.guilds, f.chars, logger)
	f.achSvc = NewAchievementService(f.achs, f.chars, f.guildSvc, logger)
	f.guildSvc.SetAchievementService(f.achSvc)
	f.syncSvc = NewSyncService(f.users, f.chars, f.stats, f.source, f.guildSvc, f.achSvc, logger)
	f.charSvc = NewCharacterService(f.chars, f.stats, logger)

	f.syncSvc.now = func() time.Time { return f.now }
	f.syncSvc.sleep = func(ctx context.Context, d time.Duration) {}

	return f
}
