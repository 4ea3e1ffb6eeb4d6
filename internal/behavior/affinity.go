// Package behavior turns playback events into an affinity score per
// track. Affinity lives in [0, 1] with 0.5 meaning "no signal": completed
// listens push it up, skips push it down by how early they happened, and
// with no events it decays back toward 0.5 so a binge from last year does
// not dominate what the player picks today.
package behavior

import (
	"math"
	"time"

	"cadence/internal/shared"
)

// NeutralAffinity is the score a track starts at and decays back toward.
const NeutralAffinity = 0.5

// clampAffinity keeps a score inside [0, 1].
func clampAffinity(a float64) float64 {
	return math.Max(0, math.Min(1, a))
}

// DecayedAffinity returns the affinity as of now, with exponential decay
// toward neutral applied for the time since the last play. The stored
// value is never rewritten by reads; decay is computed on demand so two
// readers at the same instant agree.
func DecayedAffinity(affinity float64, lastPlayedAt, now time.Time, halfLife time.Duration) float64 {
	if lastPlayedAt.IsZero() || halfLife <= 0 {
		return affinity
	}

	elapsed := now.Sub(lastPlayedAt)
	if elapsed <= 0 {
		return affinity
	}

	factor := math.Pow(0.5, elapsed.Seconds()/halfLife.Seconds())
	return NeutralAffinity + (affinity-NeutralAffinity)*factor
}

// adjustment maps one event to its signed affinity delta. Penalties are
// configured as magnitudes; the sign lives here.
func adjustment(cfg shared.BehaviorConfig, kind eventClass, positionFraction float64) float64 {
	switch kind {
	case classCompleted:
		return cfg.CompletedReward
	case classSkipped:
		switch {
		case positionFraction < cfg.EarlySkipThreshold:
			return -cfg.EarlySkipPenalty
		case positionFraction >= cfg.LateSkipThreshold:
			return cfg.LateSkipReward
		default:
			return -cfg.MiddleSkipPenalty
		}
	default:
		return 0
	}
}

type eventClass int

const (
	classNone eventClass = iota
	classSkipped
	classCompleted
)
