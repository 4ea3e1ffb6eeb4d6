package behavior

import (
	"testing"
	"time"

	"cadence/internal/shared"
)

func TestDecayedAffinityMovesTowardNeutral(t *testing.T) {
	halfLife := 30 * 24 * time.Hour
	lastPlayed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		stored  float64
		elapsed time.Duration
		want    float64
	}{
		{"no elapsed time", 0.9, 0, 0.9},
		{"one half-life from above", 0.9, halfLife, 0.7},
		{"two half-lives from above", 0.9, 2 * halfLife, 0.6},
		{"one half-life from below", 0.1, halfLife, 0.3},
		{"neutral stays neutral", 0.5, 10 * halfLife, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecayedAffinity(tt.stored, lastPlayed, lastPlayed.Add(tt.elapsed), halfLife)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestDecayedAffinityIsMonotonic(t *testing.T) {
	halfLife := 30 * 24 * time.Hour
	lastPlayed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	prev := DecayedAffinity(0.95, lastPlayed, lastPlayed, halfLife)
	for days := 1; days <= 365; days += 7 {
		now := lastPlayed.Add(time.Duration(days) * 24 * time.Hour)
		got := DecayedAffinity(0.95, lastPlayed, now, halfLife)
		if got > prev {
			t.Fatalf("decay increased at day %d: %f > %f", days, got, prev)
		}
		if got < NeutralAffinity {
			t.Fatalf("decay overshot neutral at day %d: %f", days, got)
		}
		prev = got
	}
}

func TestDecayedAffinityNeverPlayed(t *testing.T) {
	got := DecayedAffinity(0.5, time.Time{}, time.Now(), 30*24*time.Hour)
	if got != 0.5 {
		t.Errorf("expected untouched affinity for unplayed track, got %f", got)
	}
}

func TestAdjustmentDirection(t *testing.T) {
	cfg := shared.DefaultConfig().Behavior

	tests := []struct {
		name     string
		class    eventClass
		position float64
		sign     int
	}{
		{"completed", classCompleted, 1.0, +1},
		{"early skip", classSkipped, 0.1, -1},
		{"middle skip", classSkipped, 0.5, -1},
		{"late skip", classSkipped, 0.9, +1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := adjustment(cfg, tt.class, tt.position)
			if tt.sign > 0 && delta <= 0 {
				t.Errorf("expected positive adjustment, got %f", delta)
			}
			if tt.sign < 0 && delta >= 0 {
				t.Errorf("expected negative adjustment, got %f", delta)
			}
		})
	}

	early := adjustment(cfg, classSkipped, 0.1)
	middle := adjustment(cfg, classSkipped, 0.5)
	if early >= middle {
		t.Errorf("early skip must penalize harder than middle skip: %f vs %f", early, middle)
	}
}

func TestClampAffinity(t *testing.T) {
	if got := clampAffinity(1.3); got != 1 {
		t.Errorf("expected clamp to 1, got %f", got)
	}
	if got := clampAffinity(-0.2); got != 0 {
		t.Errorf("expected clamp to 0, got %f", got)
	}
	if got := clampAffinity(0.42); got != 0.42 {
		t.Errorf("expected passthrough, got %f", got)
	}
}
