package behavior

import (
	"time"

	"github.com/charmbracelet/log"

	"cadence/internal/models"
	"cadence/internal/repositories"
	"cadence/internal/shared"
)

// Tracker applies playback events to the per-track behavior records and
// appends each finished listen to the play session log. All writes go
// through BehaviorRepository.Mutate, so concurrent events for the same
// track serialize on the store and never lose an update.
type Tracker struct {
	cfg       shared.BehaviorConfig
	behaviors *repositories.BehaviorRepository
	sessions  *repositories.SessionRepository
	logger    *log.Logger
	now       func() time.Time
}

// NewTracker creates a Tracker with the given behavior configuration.
func NewTracker(
	cfg shared.BehaviorConfig,
	behaviors *repositories.BehaviorRepository,
	sessions *repositories.SessionRepository,
	logger *log.Logger,
) *Tracker {
	return &Tracker{
		cfg:       cfg,
		behaviors: behaviors,
		sessions:  sessions,
		logger:    shared.WithLogger(logger, "component", "tracker"),
		now:       time.Now,
	}
}

// Record applies one playback event. Decay for the idle period since the
// last play is folded into the stored score before the event's own
// adjustment, so the stored affinity is always exact as of LastPlayedAt.
func (t *Tracker) Record(event models.PlayEvent) error {
	at := event.At
	if at.IsZero() {
		at = t.now()
	}

	class := classNone
	switch event.Kind {
	case models.EventSkipped:
		class = classSkipped
	case models.EventCompleted:
		class = classCompleted
	}

	err := t.behaviors.Mutate(event.Fingerprint, func(rec *models.BehaviorRecord) {
		rec.Affinity = DecayedAffinity(rec.Affinity, rec.LastPlayedAt, at, t.cfg.DecayHalfLife())

		switch event.Kind {
		case models.EventPlayStarted:
			rec.PlayCount++
			rec.LastPlayedAt = at
		case models.EventSkipped:
			rec.SkipCount++
			rec.ListenedSecs += event.ListenedSecs
			rec.LastPlayedAt = at
		case models.EventCompleted:
			rec.CompletedCount++
			rec.ListenedSecs += event.ListenedSecs
			rec.LastPlayedAt = at
		}

		// A listen too short to mean anything adjusts nothing; the counter
		// above still records that it happened.
		if class != classNone && event.ListenedSecs >= t.cfg.MinListenedSeconds {
			rec.Affinity = clampAffinity(rec.Affinity + adjustment(t.cfg, class, event.PositionFraction))
		} else if class == classSkipped && event.ListenedSecs < t.cfg.MinListenedSeconds {
			// An instant skip is still a strong negative signal.
			rec.Affinity = clampAffinity(rec.Affinity - t.cfg.EarlySkipPenalty)
		}
	})
	if err != nil {
		return err
	}

	t.logger.Debug("recorded event",
		"kind", event.Kind.String(),
		"fingerprint", string(event.Fingerprint),
		"position", event.PositionFraction,
		"listened", event.ListenedSecs,
	)

	if class == classNone {
		return nil
	}

	return t.sessions.Append(models.PlaySession{
		ID:               shared.GenerateID(),
		Fingerprint:      event.Fingerprint,
		StartedAt:        at.Add(-time.Duration(event.ListenedSecs * float64(time.Second))),
		EndedAt:          at,
		ListenedSecs:     event.ListenedSecs,
		PositionFraction: event.PositionFraction,
		Outcome:          outcomeFor(event.Kind),
	})
}

// Affinity returns the current decayed affinity for a track.
func (t *Tracker) Affinity(fp models.Fingerprint) (float64, error) {
	rec, err := t.behaviors.Get(fp)
	if err != nil {
		return 0, err
	}
	return DecayedAffinity(rec.Affinity, rec.LastPlayedAt, t.now(), t.cfg.DecayHalfLife()), nil
}

// Affinities returns the decayed affinity for every tracked fingerprint,
// all evaluated at the same instant.
func (t *Tracker) Affinities() (map[models.Fingerprint]float64, error) {
	records, err := t.behaviors.All()
	if err != nil {
		return nil, err
	}

	now := t.now()
	out := make(map[models.Fingerprint]float64, len(records))
	for fp, rec := range records {
		out[fp] = DecayedAffinity(rec.Affinity, rec.LastPlayedAt, now, t.cfg.DecayHalfLife())
	}
	return out, nil
}

func outcomeFor(kind models.EventKind) string {
	if kind == models.EventCompleted {
		return "completed"
	}
	return "skipped"
}
