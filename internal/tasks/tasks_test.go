package tasks

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cadence/internal/behavior"
	"cadence/internal/library"
	"cadence/internal/models"
	"cadence/internal/repositories"
	"cadence/internal/shared"
)

type engineFixture struct {
	engine    *LibraryEngine
	tracks    *repositories.TrackRepository
	behaviors *repositories.BehaviorRepository
	root      string
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := shared.NewLogger(io.Discard)
	tracks := repositories.NewTrackRepository(db)
	behaviors := repositories.NewBehaviorRepository(db)
	observations := repositories.NewObservationRepository(db)
	sessions := repositories.NewSessionRepository(db)

	cfg := shared.DefaultConfig()
	tracker := behavior.NewTracker(cfg.Behavior, behaviors, sessions, logger)
	reconciler := library.NewReconciler(library.NewScanner(logger), tracks, observations, 0, logger)

	return &engineFixture{
		engine:    NewLibraryEngine(reconciler, tracks, behaviors, tracker),
		tracks:    tracks,
		behaviors: behaviors,
		root:      t.TempDir(),
	}
}

// writeAudio drops a fake audio file with a backdated mtime.
func (f *engineFixture) writeAudio(t *testing.T, name, content string) {
	t.Helper()

	path := filepath.Join(f.root, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("failed to backdate file: %v", err)
	}
}

// drain collects everything buffered on the progress channel.
func drain(progress chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case update := <-progress:
			updates = append(updates, update)
		default:
			return updates
		}
	}
}

func TestRescanReportsProgress(t *testing.T) {
	f := newEngineFixture(t)
	f.writeAudio(t, "one.mp3", "first")
	f.writeAudio(t, "two.mp3", "second")
	f.writeAudio(t, "three.mp3", "third")

	progress := make(chan ProgressUpdate, 64)
	result, err := f.engine.Rescan(context.Background(), progress, []string{f.root})
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if result.Added != 3 {
		t.Errorf("expected 3 added, got %d", result.Added)
	}

	updates := drain(progress)
	if len(updates) == 0 {
		t.Fatal("expected progress updates")
	}
	if updates[0].Phase != WalkRoots {
		t.Errorf("expected first update in walk phase, got %s", updates[0].Phase)
	}

	perFile := 0
	for _, update := range updates {
		if update.Phase == ReconcileFiles {
			perFile++
			if update.Step < 1 || update.Step > update.Total {
				t.Errorf("step %d out of range for total %d", update.Step, update.Total)
			}
		}
	}
	if perFile != 3 {
		t.Errorf("expected 3 per-file updates, got %d", perFile)
	}

	last := updates[len(updates)-1]
	if last.Phase != SweepMissing {
		t.Errorf("expected final summary update, got phase %s", last.Phase)
	}
	if _, ok := last.Data.(*library.ScanResult); !ok {
		t.Errorf("expected scan result attached to summary, got %T", last.Data)
	}
}

func TestRescanWithoutRoots(t *testing.T) {
	f := newEngineFixture(t)

	if _, err := f.engine.Rescan(context.Background(), nil, nil); err == nil {
		t.Error("expected error for empty root list")
	}
}

func TestRescanUnreadableRoot(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Rescan(context.Background(), nil, []string{filepath.Join(f.root, "does-not-exist")})
	if !errors.Is(err, shared.ErrUnreadableRoot) {
		t.Errorf("expected unreadable root error, got %v", err)
	}
}

func TestRescanNilProgressChannel(t *testing.T) {
	f := newEngineFixture(t)
	f.writeAudio(t, "one.mp3", "first")

	result, err := f.engine.Rescan(context.Background(), nil, []string{f.root})
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if result.Added != 1 {
		t.Errorf("expected 1 added, got %d", result.Added)
	}
}

// seedTrack inserts a track directly, bypassing the filesystem.
func (f *engineFixture) seedTrack(t *testing.T, fp, title, artist, album string, affinity float64) {
	t.Helper()

	now := time.Now()
	track := &models.Track{
		Fingerprint:  models.Fingerprint(fp),
		Path:         filepath.Join(f.root, fp+".mp3"),
		Format:       "mp3",
		DurationSecs: 180,
		Title:        title,
		Artist:       artist,
		Album:        album,
		FirstSeen:    now,
		LastSeen:     now,
	}
	if err := f.tracks.Upsert(track); err != nil {
		t.Fatalf("failed to seed track: %v", err)
	}
	if err := f.behaviors.Mutate(track.Fingerprint, func(rec *models.BehaviorRecord) {
		rec.Affinity = affinity
	}); err != nil {
		t.Fatalf("failed to seed behavior: %v", err)
	}
}
