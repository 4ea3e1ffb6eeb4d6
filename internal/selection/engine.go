package selection

import (
	"math/rand"

	"github.com/charmbracelet/log"

	"cadence/internal/behavior"
	"cadence/internal/models"
	"cadence/internal/repositories"
	"cadence/internal/shared"
)

// Engine picks the next track from the active catalog. It is read-only
// over the catalog; the history window is the only state it mutates.
type Engine struct {
	tracks  *repositories.TrackRepository
	tracker *behavior.Tracker
	history *History
	rng     *rand.Rand
	floor   float64
	logger  *log.Logger
}

// NewEngine creates an Engine. src seeds the weighted draw; a fixed seed
// reproduces a fixed pick sequence, which the tests rely on.
func NewEngine(
	tracks *repositories.TrackRepository,
	tracker *behavior.Tracker,
	cfg shared.PlaybackConfig,
	src rand.Source,
	logger *log.Logger,
) *Engine {
	floor := cfg.FloorWeight
	if floor <= 0 {
		floor = 0.05
	}
	return &Engine{
		tracks:  tracks,
		tracker: tracker,
		history: NewHistory(cfg.RecentWindow),
		rng:     rand.New(src),
		floor:   floor,
		logger:  shared.WithLogger(logger, "component", "selection"),
	}
}

// History exposes the recent window, mainly for "previous" navigation.
func (e *Engine) History() *History {
	return e.history
}

// Next returns the track to play after current, or nil when the active
// catalog is empty or sequential play ran off the end with repeat off.
// The pick is pushed onto the history window before returning.
func (e *Engine) Next(current *models.Track, shuffle bool, repeat models.RepeatMode) (*models.Track, error) {
	if repeat == models.RepeatOne && current != nil {
		return current, nil
	}

	active, err := e.tracks.ListActive()
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}

	var pick *models.Track
	if shuffle {
		pick, err = e.drawWeighted(active)
		if err != nil {
			return nil, err
		}
	} else {
		pick = e.nextSequential(active, current, repeat)
	}

	if pick != nil {
		e.history.Push(pick.Fingerprint)
	}
	return pick, nil
}

// Previous returns the track played before the current one, falling back
// to the current track when the history window has nothing earlier.
func (e *Engine) Previous(current *models.Track) (*models.Track, error) {
	fp, ok := e.history.Previous()
	if !ok {
		return current, nil
	}

	track, err := e.tracks.Get(fp)
	if err != nil {
		return nil, err
	}
	e.history.Push(track.Fingerprint)
	return track, nil
}

// nextSequential walks the active list in stable path order. Repeat-all
// wraps at the end; repeat-off stops there.
func (e *Engine) nextSequential(active []models.Track, current *models.Track, repeat models.RepeatMode) *models.Track {
	if current == nil {
		return &active[0]
	}

	idx := -1
	for i := range active {
		if active[i].Fingerprint == current.Fingerprint {
			idx = i
			break
		}
	}

	next := idx + 1
	if next >= len(active) {
		if repeat != models.RepeatAll {
			return nil
		}
		next = 0
	}
	return &active[next]
}

// drawWeighted picks among active tracks outside the recent window, each
// weighted by floor + decayed affinity. When the window swallows the
// whole library the draw relaxes to the least-recently-played track so a
// small catalog keeps playing instead of going silent.
func (e *Engine) drawWeighted(active []models.Track) (*models.Track, error) {
	affinities, err := e.tracker.Affinities()
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Track, 0, len(active))
	for _, track := range active {
		if !e.history.Contains(track.Fingerprint) {
			candidates = append(candidates, track)
		}
	}

	if len(candidates) == 0 {
		pick := e.history.LeastRecent(active)
		e.logger.Debug("recent window covers library, relaxing", "pick", string(pick.Fingerprint))
		return pick, nil
	}

	total := 0.0
	weights := make([]float64, len(candidates))
	for i, track := range candidates {
		affinity, ok := affinities[track.Fingerprint]
		if !ok {
			affinity = behavior.NeutralAffinity
		}
		weights[i] = e.floor + affinity
		total += weights[i]
	}

	target := e.rng.Float64() * total
	for i := range candidates {
		target -= weights[i]
		if target < 0 {
			return &candidates[i], nil
		}
	}
	// Float accumulation can leave target at a hair above zero.
	return &candidates[len(candidates)-1], nil
}
