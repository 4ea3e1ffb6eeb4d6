// package testing contains shared testing utilities
package testing

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cadence/internal/models"
	"cadence/internal/playback"
	"cadence/internal/shared"
)

// NewTestDB opens a migrated in-memory database for one test.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// Each pooled connection to :memory: gets its own database; pin to one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// TestTrack returns a minimal valid track for seeding repositories.
func TestTrack(fp models.Fingerprint, path string) *models.Track {
	now := time.Now()
	return &models.Track{
		Fingerprint:  fp,
		Path:         path,
		Format:       "mp3",
		Size:         4096,
		DurationSecs: 200,
		FirstSeen:    now,
		LastSeen:     now,
	}
}

// FakeOutput is a scriptable [playback.Output]. Paths registered as
// failing refuse to open; everything else yields a FakeHandle the test
// drives by hand.
type FakeOutput struct {
	mu      sync.Mutex
	failing map[string]bool
	opened  []string
	handles []*FakeHandle
}

func NewFakeOutput() *FakeOutput {
	return &FakeOutput{failing: make(map[string]bool)}
}

// FailPath makes every future Open of path return an error.
func (o *FakeOutput) FailPath(path string) {
	o.mu.Lock()
	o.failing[path] = true
	o.mu.Unlock()
}

func (o *FakeOutput) Open(path string) (playback.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opened = append(o.opened, path)
	if o.failing[path] {
		return nil, fmt.Errorf("%w: %s", shared.ErrOutputUnavailable, path)
	}

	h := &FakeHandle{
		path:    path,
		reports: make(chan playback.Notification, 16),
	}
	o.handles = append(o.handles, h)
	return h, nil
}

// Opened lists every path passed to Open, failures included.
func (o *FakeOutput) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// Current returns the most recently opened handle.
func (o *FakeOutput) Current() *FakeHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.handles) == 0 {
		return nil
	}
	return o.handles[len(o.handles)-1]
}

// FakeHandle records transport calls and lets a test feed notifications
// to the session as if audio were progressing.
type FakeHandle struct {
	path    string
	reports chan playback.Notification

	mu       sync.Mutex
	playing  bool
	volume   float64
	closed   bool
	position time.Duration
}

func (h *FakeHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("handle closed")
	}
	h.playing = true
	return nil
}

func (h *FakeHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("handle closed")
	}
	h.playing = false
	return nil
}

func (h *FakeHandle) Seek(position time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("handle closed")
	}
	h.position = position
	return nil
}

// Sought returns the last position passed to Seek.
func (h *FakeHandle) Sought() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *FakeHandle) SetVolume(v float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
	return nil
}

func (h *FakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.reports)
	}
	return nil
}

func (h *FakeHandle) Notifications() <-chan playback.Notification {
	return h.reports
}

// Report feeds one notification to the session, as the audio goroutine
// would. Reports after Close are dropped.
func (h *FakeHandle) Report(n playback.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.reports <- n
}

// AdvanceTo reports a position update for a fraction of the track's
// duration.
func (h *FakeHandle) AdvanceTo(durationSecs, fraction float64) {
	h.Report(playback.Notification{
		Position: time.Duration(durationSecs * fraction * float64(time.Second)),
	})
}

// Finish reports end-of-track.
func (h *FakeHandle) Finish() {
	h.Report(playback.Notification{EndOfTrack: true})
}

// Closed reports whether the handle was released.
func (h *FakeHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Volume returns the last volume set on the handle.
func (h *FakeHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

// Playing reports whether the handle is currently playing.
func (h *FakeHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}
