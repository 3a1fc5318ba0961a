package xp

import (
	"testing"

	"github.com/sakif/gitquest/internal/model"
)

func TestForActivity(t *testing.T) {
	tests := []struct {
		name     string
		activity Activity
		count    int64
		class    model.Class
		want     int64
	}{
		{
			name:     "warrior commits at base rate",
			activity: ActivityCommits,
			count:    5,
			class:    model.ClassWarrior,
			want:     50, // 5 × 10 × 1.0
		},
		{
			name:     "warrior PR with bonus, floored",
			activity: ActivityPRs,
			count:    1,
			class:    model.ClassWarrior,
			want:     62, // floor(1 × 50 × 1.25) = floor(62.5)
		},
		{
			name:     "orc PR with penalty",
			activity: ActivityPRs,
			count:    1,
			class:    model.ClassOrc,
			want:     45, // 1 × 50 × 0.9
		},
		{
			name:     "mage commit floors below base",
			activity: ActivityCommits,
			count:    1,
			class:    model.ClassMage,
			want:     9, // 1 × 10 × 0.9
		},
		{
			name:     "mage issue with bonus",
			activity: ActivityIssues,
			count:    1,
			class:    model.ClassMage,
			want:     45, // 1 × 30 × 1.5
		},
		{
			name:     "unknown class gets neutral multiplier",
			activity: ActivityCommits,
			count:    3,
			class:    model.Class("paladin"),
			want:     30,
		},
		{
			name:     "zero count earns nothing",
			activity: ActivityCommits,
			count:    0,
			class:    model.ClassOrc,
			want:     0,
		},
		{
			name:     "negative count earns nothing",
			activity: ActivityPRs,
			count:    -4,
			class:    model.ClassWarrior,
			want:     0,
		},
		{
			name:     "unknown activity has zero rate",
			activity: Activity("stars"),
			count:    10,
			class:    model.ClassOrc,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForActivity(tt.activity, tt.count, tt.class); got != tt.want {
				t.Errorf("ForActivity(%s, %d, %s) = %d, want %d",
					tt.activity, tt.count, tt.class, got, tt.want)
			}
		})
	}
}

func TestForDelta(t *testing.T) {
	// A warrior with 5 new commits and 1 merged PR:
	// 5×10×1.0 + floor(1×50×1.25) = 50 + 62 = 112.
	d := Delta{Commits: 5, PRs: 1}
	if got := ForDelta(d, model.ClassWarrior); got != 112 {
		t.Errorf("ForDelta(%+v, warrior) = %d, want 112", d, got)
	}

	if got := ForDelta(Delta{}, model.ClassMage); got != 0 {
		t.Errorf("ForDelta(zero) = %d, want 0", got)
	}
}

// Each axis floors independently — the sum of two flooring operations,
// not one floor over the sum.
func TestForDeltaFloorsPerAxis(t *testing.T) {
	// Mage: commits 3×10×0.9 = 27 exactly, PRs 1×50×1.1 = 55 exactly,
	// issues 1×30×1.5 = 45.
	d := Delta{Commits: 3, PRs: 1, Issues: 1}
	if got := ForDelta(d, model.ClassMage); got != 127 {
		t.Errorf("ForDelta(%+v, mage) = %d, want 127", d, got)
	}
}

func TestDeltaIsZero(t *testing.T) {
	if !(Delta{}).IsZero() {
		t.Error("empty Delta should be zero")
	}
	if (Delta{Issues: 1}).IsZero() {
		t.Error("Delta with issues should not be zero")
	}
}

// Walk the whole multiplier table and enforce the cap. A config tweak that
// pushes an entry over MaxMultiplier (or to zero or below) must fail here.
func TestMultiplierBounds(t *testing.T) {
	classes := []model.Class{model.ClassOrc, model.ClassWarrior, model.ClassMage}
	activities := []Activity{ActivityCommits, ActivityPRs, ActivityIssues}

	for _, class := range classes {
		for _, activity := range activities {
			m := Multiplier(class, activity)
			if m <= 0 || m > MaxMultiplier {
				t.Errorf("Multiplier(%s, %s) = %v out of (0, %v]", class, activity, m, MaxMultiplier)
			}
		}
	}
}

func TestMultiplierUnknownIsNeutral(t *testing.T) {
	if got := Multiplier(model.Class("bard"), ActivityCommits); got != 1.0 {
		t.Errorf("Multiplier(unknown class) = %v, want 1.0", got)
	}
	if got := Multiplier(model.ClassOrc, Activity("stars")); got != 1.0 {
		t.Errorf("Multiplier(unknown activity) = %v, want 1.0", got)
	}
}
