// package models defines the data model for the library player:
// content-addressed tracks, per-track listening behavior, playback events,
// and the transport state snapshot shared with the UI.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Fingerprint is the fixed-width content digest used as track identity.
// It is a pure function of file bytes: the same audio at a different path
// always carries the same fingerprint.
type Fingerprint string

// Track is one known audio file, keyed by fingerprint. The path records
// where the file currently lives and is not part of its identity; two
// observations of the same fingerprint at different paths are a move.
type Track struct {
	Fingerprint  Fingerprint
	Path         string
	Format       string
	Size         int64
	DurationSecs float64

	// Best-effort values parsed from the file's tags.
	Title  string
	Artist string
	Album  string

	// User edits. Overrides are a read-time layer over the parsed values,
	// never a rewrite of them, so a rescan cannot clobber an edit.
	TitleOverride  string
	ArtistOverride string
	AlbumOverride  string

	Missing   bool
	FirstSeen time.Time
	LastSeen  time.Time
}

// DisplayTitle returns the override when set, then the parsed title, then
// the file name.
func (t Track) DisplayTitle() string {
	if t.TitleOverride != "" {
		return t.TitleOverride
	}
	if t.Title != "" {
		return t.Title
	}
	base := filepath.Base(t.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DisplayArtist returns the override when set, falling back to the parsed
// artist.
func (t Track) DisplayArtist() string {
	if t.ArtistOverride != "" {
		return t.ArtistOverride
	}
	if t.Artist != "" {
		return t.Artist
	}
	return "Unknown Artist"
}

// DisplayAlbum returns the override when set, falling back to the parsed
// album.
func (t Track) DisplayAlbum() string {
	if t.AlbumOverride != "" {
		return t.AlbumOverride
	}
	if t.Album != "" {
		return t.Album
	}
	return "Unknown Album"
}

// Duration returns the track length as a [time.Duration].
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationSecs * float64(time.Second))
}

// BehaviorRecord aggregates the recorded listening events for one track.
// Affinity lives in [0, 1] with 0.5 neutral; it is mutated only by the
// behavior tracker and decays toward neutral as time passes since
// LastPlayedAt (applied lazily when read, see behavior.Decayed).
type BehaviorRecord struct {
	Fingerprint    Fingerprint
	PlayCount      int64
	SkipCount      int64
	CompletedCount int64
	ListenedSecs   float64
	Affinity       float64
	LastPlayedAt   time.Time // zero when never played
}

// EventKind discriminates playback transitions reported to the tracker.
type EventKind int

const (
	EventPlayStarted EventKind = iota
	EventSkipped
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventPlayStarted:
		return "play_started"
	case EventSkipped:
		return "skipped"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// PlayEvent is one playback transition for one track. The playback session
// emits each logical event exactly once; the tracker applies them to the
// catalog in observation order.
type PlayEvent struct {
	Kind        EventKind
	Fingerprint Fingerprint
	// PositionFraction is how far into the track the event happened,
	// in [0, 1]. Meaningful for EventSkipped; 1 for EventCompleted.
	PositionFraction float64
	ListenedSecs     float64
	At               time.Time
}

// PlaySession is one row of the playback log: a single continuous listen
// from start to skip/completion.
type PlaySession struct {
	ID               string
	Fingerprint      Fingerprint
	StartedAt        time.Time
	EndedAt          time.Time
	ListenedSecs     float64
	PositionFraction float64
	Outcome          string // "skipped", "completed", or "stopped"
}

// TransportState is the coarse playback state machine position.
type TransportState int

const (
	TransportStopped TransportState = iota
	TransportPlaying
	TransportPaused
)

func (s TransportState) String() string {
	switch s {
	case TransportPlaying:
		return "playing"
	case TransportPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// RepeatMode cycles off -> all -> one.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// PlaybackState is a consistent snapshot of the playback session. The
// session is the only writer; everyone else receives copies of this value.
type PlaybackState struct {
	Current   *Track // nil when nothing is loaded
	Transport TransportState
	Position  time.Duration
	Volume    float64
	Shuffle   bool
	Repeat    RepeatMode
}
