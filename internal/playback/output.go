// Package playback owns the transport state machine. It sits between the
// selection engine, the behavior tracker, and an audio output capability:
// the session decides what plays and records why it stopped; the output
// only decodes bytes and reports progress.
package playback

import "time"

// Notification is one asynchronous report from an audio handle. Position
// updates may be coalesced by a slow consumer; an end-of-track report is
// never dropped, since missing it would strand the session mid-state.
type Notification struct {
	Position   time.Duration
	EndOfTrack bool
	Err        error
}

// Handle is one opened track on the audio output. Close releases the
// device and closes the notification channel; it is safe to call more
// than once and must not block on undelivered notifications.
type Handle interface {
	Play() error
	Pause() error
	// Seek moves playback to the given position. Outputs without a
	// control channel return [shared.ErrNotImplemented].
	Seek(position time.Duration) error
	SetVolume(v float64) error
	Close() error

	// Notifications delivers position updates and the end-of-track
	// report. The channel closes when the handle is closed.
	Notifications() <-chan Notification
}

// Output is the external audio capability. Implementations decode and
// play the file at path; the session never touches audio bytes itself.
type Output interface {
	Open(path string) (Handle, error)
}
