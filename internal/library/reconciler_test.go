package library

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cadence/internal/models"
	"cadence/internal/repositories"
	"cadence/internal/shared"
)

type fixture struct {
	reconciler   *Reconciler
	tracks       *repositories.TrackRepository
	behaviors    *repositories.BehaviorRepository
	observations *repositories.ObservationRepository
	root         string
}

func newFixture(t *testing.T, settle time.Duration) *fixture {
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

	logger := shared.NewLogger(io.Discard)
	tracks := repositories.NewTrackRepository(db)
	observations := repositories.NewObservationRepository(db)

	return &fixture{
		reconciler:   NewReconciler(NewScanner(logger), tracks, observations, settle, logger),
		tracks:       tracks,
		behaviors:    repositories.NewBehaviorRepository(db),
		observations: observations,
		root:         t.TempDir(),
	}
}

// writeAudio drops a fake audio file and backdates its mtime so settle
// windows never interfere unless a test wants them to.
func (f *fixture) writeAudio(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(f.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("failed to backdate file: %v", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("failed to resolve path: %v", err)
	}
	return abs
}

func (f *fixture) scan(t *testing.T) *ScanResult {
	t.Helper()

	result, err := f.reconciler.Scan(context.Background(), []string{f.root})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return result
}

func TestReconcilerAddsNewTracks(t *testing.T) {
	f := newFixture(t, 0)
	pathA := f.writeAudio(t, "artist/album/one.mp3", "first track bytes")
	f.writeAudio(t, "artist/album/two.mp3", "second track bytes")

	result := f.scan(t)

	if result.Added != 2 {
		t.Errorf("expected 2 added, got %d", result.Added)
	}
	if result.Scanned != 2 {
		t.Errorf("expected 2 scanned, got %d", result.Scanned)
	}

	fp, ok, err := f.tracks.FindByPath(pathA)
	if err != nil || !ok {
		t.Fatalf("expected track at %s, ok=%v err=%v", pathA, ok, err)
	}

	track, err := f.tracks.Get(fp)
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if track.Format != "mp3" {
		t.Errorf("expected format mp3, got %q", track.Format)
	}
	if track.DisplayTitle() != "one" {
		t.Errorf("expected filename fallback title, got %q", track.DisplayTitle())
	}

	// A track gets a neutral behavior row the moment it enters the catalog.
	rec, err := f.behaviors.Get(fp)
	if err != nil {
		t.Fatalf("failed to get behavior: %v", err)
	}
	if rec.Affinity != 0.5 {
		t.Errorf("expected neutral affinity, got %f", rec.Affinity)
	}
}

func TestReconcilerRescanIsIdempotent(t *testing.T) {
	f := newFixture(t, 0)
	f.writeAudio(t, "a.mp3", "aaa")
	f.writeAudio(t, "b.flac", "bbb")
	f.writeAudio(t, "sub/c.ogg", "ccc")

	first := f.scan(t)
	if first.Added != 3 {
		t.Fatalf("expected 3 added on first scan, got %d", first.Added)
	}

	second := f.scan(t)
	if got := second.Mutations(); got != 0 {
		t.Errorf("expected zero mutations on rescan, got %d (%s)", got, second)
	}
	if second.Unchanged != 3 {
		t.Errorf("expected 3 unchanged, got %d", second.Unchanged)
	}
}

func TestReconcilerDetectsMovePreservingBehavior(t *testing.T) {
	f := newFixture(t, 0)
	oldPath := f.writeAudio(t, "inbox/song.mp3", "distinctive bytes")
	f.scan(t)

	fp, _, err := f.tracks.FindByPath(oldPath)
	if err != nil {
		t.Fatalf("failed to find track: %v", err)
	}
	err = f.behaviors.Mutate(fp, func(rec *models.BehaviorRecord) {
		rec.PlayCount = 7
		rec.Affinity = 0.8
	})
	if err != nil {
		t.Fatalf("failed to mutate behavior: %v", err)
	}

	newPath := filepath.Join(f.root, "sorted", "artist", "song.mp3")
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatalf("failed to move file: %v", err)
	}

	result := f.scan(t)
	if result.Moved != 1 {
		t.Errorf("expected 1 moved, got %d (%s)", result.Moved, result)
	}
	if result.Added != 0 {
		t.Errorf("expected no new tracks after a move, got %d", result.Added)
	}
	if result.Missing != 0 {
		t.Errorf("expected nothing missing after a move, got %d", result.Missing)
	}

	track, err := f.tracks.Get(fp)
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if track.Path != newPath {
		t.Errorf("expected path %s, got %s", newPath, track.Path)
	}

	rec, err := f.behaviors.Get(fp)
	if err != nil {
		t.Fatalf("failed to get behavior: %v", err)
	}
	if rec.PlayCount != 7 || rec.Affinity != 0.8 {
		t.Errorf("behavior did not survive the move: %+v", rec)
	}
}

func TestReconcilerMissingAndReturn(t *testing.T) {
	f := newFixture(t, 0)
	path := f.writeAudio(t, "gone.mp3", "ephemeral bytes")
	f.scan(t)

	fp, _, err := f.tracks.FindByPath(path)
	if err != nil {
		t.Fatalf("failed to find track: %v", err)
	}
	if err := f.behaviors.Mutate(fp, func(rec *models.BehaviorRecord) { rec.SkipCount = 3 }); err != nil {
		t.Fatalf("failed to mutate behavior: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}

	result := f.scan(t)
	if result.Missing != 1 {
		t.Errorf("expected 1 missing, got %d", result.Missing)
	}

	track, err := f.tracks.Get(fp)
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if !track.Missing {
		t.Error("expected track marked missing")
	}

	active, err := f.tracks.ListActive()
	if err != nil {
		t.Fatalf("failed to list active tracks: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("missing tracks must not be listed as active, got %d", len(active))
	}

	// The same bytes coming back resume the old identity and history.
	f.writeAudio(t, "gone.mp3", "ephemeral bytes")

	result = f.scan(t)
	if result.Added != 0 {
		t.Errorf("returning file must not mint a new track, got %d added", result.Added)
	}

	track, err = f.tracks.Get(fp)
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if track.Missing {
		t.Error("expected track resurrected")
	}

	rec, err := f.behaviors.Get(fp)
	if err != nil {
		t.Fatalf("failed to get behavior: %v", err)
	}
	if rec.SkipCount != 3 {
		t.Errorf("behavior did not survive the absence: %+v", rec)
	}
}

func TestReconcilerDuplicateContent(t *testing.T) {
	f := newFixture(t, 0)
	first := f.writeAudio(t, "a/original.mp3", "identical bytes")
	f.writeAudio(t, "b/copy.mp3", "identical bytes")

	result := f.scan(t)
	if result.Added != 1 {
		t.Errorf("duplicate bytes must produce one track, got %d", result.Added)
	}
	if len(result.DuplicatePaths) != 1 {
		t.Fatalf("expected 1 duplicate path, got %d", len(result.DuplicatePaths))
	}

	// Lexically first path wins as the canonical one.
	fp, ok, err := f.tracks.FindByPath(first)
	if err != nil || !ok {
		t.Fatalf("expected canonical track at %s, ok=%v err=%v", first, ok, err)
	}

	// Deleting the canonical copy hands the track to the survivor rather
	// than marking it missing.
	if err := os.Remove(first); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	result = f.scan(t)
	if result.Missing != 0 {
		t.Errorf("expected no missing tracks while a copy survives, got %d", result.Missing)
	}
	if result.Moved != 1 {
		t.Errorf("expected track to follow surviving copy, got %d moved", result.Moved)
	}

	track, err := f.tracks.Get(fp)
	if err != nil {
		t.Fatalf("failed to get track: %v", err)
	}
	if filepath.Base(track.Path) != "copy.mp3" {
		t.Errorf("expected track at surviving copy, got %s", track.Path)
	}
}

func TestReconcilerSettleWindow(t *testing.T) {
	f := newFixture(t, time.Hour)
	path := f.writeAudio(t, "fresh.mp3", "still downloading")
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("failed to touch file: %v", err)
	}

	result := f.scan(t)
	if result.Skipped != 1 {
		t.Errorf("expected fresh file skipped, got %d skipped", result.Skipped)
	}
	if result.Added != 0 {
		t.Errorf("fresh file must not be cataloged, got %d added", result.Added)
	}

	old := now.Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("failed to backdate file: %v", err)
	}

	result = f.scan(t)
	if result.Added != 1 {
		t.Errorf("settled file must be cataloged, got %d added", result.Added)
	}
}

func TestReconcilerIgnoresNonAudio(t *testing.T) {
	f := newFixture(t, 0)
	f.writeAudio(t, "song.mp3", "audio")
	if err := os.WriteFile(filepath.Join(f.root, "cover.jpg"), []byte("image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(f.root, ".hidden.mp3"), []byte("dotfile"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(f.root, "empty.mp3"), nil, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	result := f.scan(t)
	if result.Scanned != 1 || result.Added != 1 {
		t.Errorf("expected exactly the audio file, got %s", result)
	}
}

func TestReconcilerUnreadableRoot(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.reconciler.Scan(context.Background(), []string{filepath.Join(f.root, "nope")})
	if !errors.Is(err, shared.ErrUnreadableRoot) {
		t.Errorf("expected ErrUnreadableRoot, got %v", err)
	}
}

func TestReconcilerCancellation(t *testing.T) {
	f := newFixture(t, 0)
	f.writeAudio(t, "a.mp3", "aaa")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.reconciler.Scan(ctx, []string{f.root})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
