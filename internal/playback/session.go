package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"cadence/internal/behavior"
	"cadence/internal/models"
	"cadence/internal/selection"
	"cadence/internal/shared"
)

// Session is the single owner of playback state. All transitions run
// under one mutex and are synchronous from the caller's perspective; the
// audio handle's notification goroutine feeds back through the same
// mutex, with a generation counter so reports from an already-replaced
// handle are discarded instead of corrupting the state.
//
// Every track the session leaves produces exactly one behavior event,
// and that event is recorded before the selection engine is asked for
// the next pick, so selection always sees the just-ended track's score.
type Session struct {
	output  Output
	engine  *selection.Engine
	tracker *behavior.Tracker
	logger  *log.Logger

	nearEnd  float64
	retryCap int
	volStep  float64

	mu       sync.Mutex
	state    models.PlaybackState
	handle   Handle
	gen      int
	notifyFn func() // poked after every state change, nil outside the UI
}

// NewSession creates a stopped Session.
func NewSession(
	output Output,
	engine *selection.Engine,
	tracker *behavior.Tracker,
	cfg *shared.Config,
	logger *log.Logger,
) *Session {
	retryCap := cfg.Playback.OpenRetryCap
	if retryCap < 1 {
		retryCap = 1
	}
	return &Session{
		output:   output,
		engine:   engine,
		tracker:  tracker,
		logger:   shared.WithLogger(logger, "component", "playback"),
		nearEnd:  cfg.Behavior.NearEndThreshold,
		retryCap: retryCap,
		volStep:  cfg.Playback.VolumeStep,
		state: models.PlaybackState{
			Transport: models.TransportStopped,
			Volume:    cfg.Playback.InitialVolume,
			Shuffle:   true,
		},
	}
}

// Notify registers a callback invoked after every state change. The UI
// uses it to repaint; it runs outside the session lock.
func (s *Session) Notify(fn func()) {
	s.mu.Lock()
	s.notifyFn = fn
	s.mu.Unlock()
}

// Snapshot returns a copy of the current playback state.
func (s *Session) Snapshot() models.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state
	if s.state.Current != nil {
		track := *s.state.Current
		snap.Current = &track
	}
	return snap
}

// Toggle starts playback when stopped, pauses when playing, and resumes
// when paused.
func (s *Session) Toggle() error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	switch s.state.Transport {
	case models.TransportStopped:
		pick, err := s.engine.Next(nil, s.state.Shuffle, s.state.Repeat)
		if err != nil {
			return err
		}
		if pick == nil {
			return shared.ErrEmptyCatalog
		}
		return s.startLocked(pick)

	case models.TransportPlaying:
		if err := s.handle.Pause(); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}
		s.state.Transport = models.TransportPaused
		return nil

	default:
		if err := s.handle.Play(); err != nil {
			return fmt.Errorf("failed to resume: %w", err)
		}
		s.state.Transport = models.TransportPlaying
		return nil
	}
}

// Play leaves whatever is current and starts the given track directly,
// as when the user picks a row in the library list.
func (s *Session) Play(track *models.Track) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	if err := s.emitDepartureLocked(); err != nil {
		return err
	}
	s.engine.History().Push(track.Fingerprint)
	return s.startLocked(track)
}

// Next leaves the current track, recording Completed or Skipped by how
// far in it got, and starts whatever the engine picks. With nothing
// playing it behaves like Toggle from stopped.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	leaving := s.state.Current
	if leaving != nil {
		if err := s.emitDepartureLocked(); err != nil {
			return err
		}
	}

	pick, err := s.engine.Next(leaving, s.state.Shuffle, s.state.Repeat)
	if err != nil {
		s.stopLocked()
		return err
	}
	if pick == nil {
		s.stopLocked()
		return nil
	}
	return s.startLocked(pick)
}

// Previous leaves the current track the same way Next does, then replays
// the prior entry from the selection history.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	leaving := s.state.Current
	if leaving == nil {
		return shared.ErrNothingPlaying
	}
	if err := s.emitDepartureLocked(); err != nil {
		return err
	}

	pick, err := s.engine.Previous(leaving)
	if err != nil {
		s.stopLocked()
		return err
	}
	return s.startLocked(pick)
}

// Stop leaves the current track, recording its departure event, and
// releases the audio handle.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	if s.state.Current == nil {
		return nil
	}
	if err := s.emitDepartureLocked(); err != nil {
		return err
	}
	s.stopLocked()
	return nil
}

// Seek moves playback within the current track and realigns the position
// bookkeeping. Outputs that cannot seek surface their error unchanged so
// the UI can report it.
func (s *Session) Seek(position time.Duration) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	if s.state.Current == nil || s.handle == nil {
		return shared.ErrNothingPlaying
	}

	if position < 0 {
		position = 0
	}
	if limit := s.state.Current.Duration(); limit > 0 && position > limit {
		position = limit
	}

	if err := s.handle.Seek(position); err != nil {
		return err
	}
	s.state.Position = position
	return nil
}

// ToggleShuffle flips shuffle mode for future picks.
func (s *Session) ToggleShuffle() {
	s.mu.Lock()
	s.state.Shuffle = !s.state.Shuffle
	s.mu.Unlock()
	s.notify()
}

// CycleRepeat advances off → all → one → off.
func (s *Session) CycleRepeat() {
	s.mu.Lock()
	switch s.state.Repeat {
	case models.RepeatOff:
		s.state.Repeat = models.RepeatAll
	case models.RepeatAll:
		s.state.Repeat = models.RepeatOne
	default:
		s.state.Repeat = models.RepeatOff
	}
	s.mu.Unlock()
	s.notify()
}

// AdjustVolume nudges the volume by direction steps, clamped to [0, 1].
func (s *Session) AdjustVolume(direction int) error {
	s.mu.Lock()
	defer s.notify()
	defer s.mu.Unlock()

	v := s.state.Volume + float64(direction)*s.volStep
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.state.Volume = v

	if s.handle != nil {
		if err := s.handle.SetVolume(v); err != nil {
			return fmt.Errorf("failed to set volume: %w", err)
		}
	}
	return nil
}

// startLocked opens and plays track, walking forward through further
// engine picks when a file fails to open. The walk is bounded so an
// entirely unplayable catalog stops instead of spinning.
func (s *Session) startLocked(track *models.Track) error {
	s.releaseLocked()

	for attempt := 0; attempt < s.retryCap; attempt++ {
		handle, err := s.output.Open(track.Path)
		if err != nil {
			s.logger.Warn("could not open track, skipping", "path", track.Path, "error", err)

			track, err = s.engine.Next(track, s.state.Shuffle, s.state.Repeat)
			if err != nil {
				s.stopLocked()
				return err
			}
			if track == nil {
				s.stopLocked()
				return nil
			}
			continue
		}

		if err := handle.SetVolume(s.state.Volume); err != nil {
			s.logger.Warn("could not set volume", "error", err)
		}
		if err := handle.Play(); err != nil {
			handle.Close()
			s.stopLocked()
			return fmt.Errorf("%w: %v", shared.ErrOutputUnavailable, err)
		}

		s.handle = handle
		s.gen++
		s.state.Current = track
		s.state.Transport = models.TransportPlaying
		s.state.Position = 0

		if err := s.tracker.Record(models.PlayEvent{
			Kind:        models.EventPlayStarted,
			Fingerprint: track.Fingerprint,
			At:          time.Now(),
		}); err != nil {
			s.logger.Error("could not record play start", "error", err)
		}

		go s.watch(handle, s.gen)
		s.logger.Info("playing", "title", track.DisplayTitle(), "path", track.Path)
		return nil
	}

	s.stopLocked()
	return shared.ErrUnplayableCatalog
}

// watch consumes one handle's notifications until the handle is replaced
// or its channel closes.
func (s *Session) watch(handle Handle, gen int) {
	for n := range handle.Notifications() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}

		switch {
		case n.Err != nil:
			s.logger.Error("output failure", "error", n.Err)
			if err := s.emitDepartureLocked(); err != nil {
				s.logger.Error("could not record departure", "error", err)
			}
			s.stopLocked()

		case n.EndOfTrack:
			s.finishLocked()

		default:
			s.state.Position = n.Position
		}
		s.mu.Unlock()
		s.notify()
	}
}

// finishLocked handles natural end-of-track: record the completion, then
// advance or stop depending on what the engine has left.
func (s *Session) finishLocked() {
	track := s.state.Current
	if track == nil {
		return
	}

	err := s.tracker.Record(models.PlayEvent{
		Kind:             models.EventCompleted,
		Fingerprint:      track.Fingerprint,
		PositionFraction: 1,
		ListenedSecs:     s.state.Position.Seconds(),
		At:               time.Now(),
	})
	if err != nil {
		s.logger.Error("could not record completion", "error", err)
	}
	s.state.Current = nil

	pick, err := s.engine.Next(track, s.state.Shuffle, s.state.Repeat)
	if err != nil || pick == nil {
		if err != nil {
			s.logger.Error("could not pick next track", "error", err)
		}
		s.stopLocked()
		return
	}
	if err := s.startLocked(pick); err != nil {
		s.logger.Error("could not start next track", "error", err)
	}
}

// emitDepartureLocked records the one behavior event for the track being
// left: Completed when playback got near the end, otherwise Skipped with
// the position it died at. Clears Current so the event cannot fire twice.
func (s *Session) emitDepartureLocked() error {
	track := s.state.Current
	if track == nil {
		return nil
	}
	s.state.Current = nil

	fraction := 0.0
	if track.DurationSecs > 0 {
		fraction = s.state.Position.Seconds() / track.DurationSecs
		if fraction > 1 {
			fraction = 1
		}
	}

	kind := models.EventSkipped
	if fraction >= s.nearEnd {
		kind = models.EventCompleted
		fraction = 1
	}

	return s.tracker.Record(models.PlayEvent{
		Kind:             kind,
		Fingerprint:      track.Fingerprint,
		PositionFraction: fraction,
		ListenedSecs:     s.state.Position.Seconds(),
		At:               time.Now(),
	})
}

// stopLocked releases the handle and parks the transport.
func (s *Session) stopLocked() {
	s.releaseLocked()
	s.state.Current = nil
	s.state.Transport = models.TransportStopped
	s.state.Position = 0
}

// releaseLocked closes the current handle. Bumping the generation makes
// the old watcher goroutine drop any report still in flight.
func (s *Session) releaseLocked() {
	if s.handle == nil {
		return
	}
	s.gen++
	if err := s.handle.Close(); err != nil {
		s.logger.Warn("could not close output handle", "error", err)
	}
	s.handle = nil
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.notifyFn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
