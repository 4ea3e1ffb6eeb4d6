package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"cadence/internal/models"
	"cadence/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A pooled :memory: database is one database per connection; pin the
	// pool to a single connection so every query sees the same schema.
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func testTrack(fp, path string) *models.Track {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Track{
		Fingerprint:  models.Fingerprint(fp),
		Path:         path,
		Format:       "mp3",
		Size:         4096,
		DurationSecs: 180,
		Title:        "Test Title",
		Artist:       "Test Artist",
		Album:        "Test Album",
		FirstSeen:    now,
		LastSeen:     now,
	}
}

func TestTrackRepository(t *testing.T) {
	t.Run("Upsert and Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		track := testTrack("fp-1", "/music/a.mp3")
		if err := repo.Upsert(track); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		got, err := repo.Get("fp-1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}

		if got.Path != "/music/a.mp3" {
			t.Errorf("expected path /music/a.mp3, got %s", got.Path)
		}
		if got.Title != "Test Title" || got.Artist != "Test Artist" {
			t.Errorf("metadata not round-tripped: %+v", got)
		}
		if got.Missing {
			t.Error("new track should not be missing")
		}
	})

	t.Run("Upsert creates behavior record", func(t *testing.T) {
		db := setupTestDB(t)
		tracks := NewTrackRepository(db)
		behaviors := NewBehaviorRepository(db)

		if err := tracks.Upsert(testTrack("fp-1", "/music/a.mp3")); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		rec, err := behaviors.Get("fp-1")
		if err != nil {
			t.Fatalf("behavior record should exist alongside track: %v", err)
		}
		if rec.Affinity != 0.5 {
			t.Errorf("expected neutral affinity 0.5, got %f", rec.Affinity)
		}
		if rec.PlayCount != 0 {
			t.Errorf("expected zero plays, got %d", rec.PlayCount)
		}
	})

	t.Run("Upsert twice preserves behavior", func(t *testing.T) {
		db := setupTestDB(t)
		tracks := NewTrackRepository(db)
		behaviors := NewBehaviorRepository(db)

		if err := tracks.Upsert(testTrack("fp-1", "/music/a.mp3")); err != nil {
			t.Fatal(err)
		}
		if err := behaviors.Mutate("fp-1", func(rec *models.BehaviorRecord) {
			rec.PlayCount = 7
			rec.Affinity = 0.9
		}); err != nil {
			t.Fatal(err)
		}

		if err := tracks.Upsert(testTrack("fp-1", "/music/moved.mp3")); err != nil {
			t.Fatal(err)
		}

		rec, err := behaviors.Get("fp-1")
		if err != nil {
			t.Fatal(err)
		}
		if rec.PlayCount != 7 || rec.Affinity != 0.9 {
			t.Errorf("re-upsert must not reset behavior, got %+v", rec)
		}
	})

	t.Run("FindByPath", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		if err := repo.Upsert(testTrack("fp-1", "/music/a.mp3")); err != nil {
			t.Fatal(err)
		}

		fp, ok, err := repo.FindByPath("/music/a.mp3")
		if err != nil {
			t.Fatal(err)
		}
		if !ok || fp != "fp-1" {
			t.Errorf("expected fp-1 at path, got %q (ok=%v)", fp, ok)
		}

		_, ok, err = repo.FindByPath("/music/unknown.mp3")
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Error("unknown path should not resolve")
		}
	})

	t.Run("UpdatePath preserves identity", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		if err := repo.Upsert(testTrack("fp-1", "/music/a.mp3")); err != nil {
			t.Fatal(err)
		}

		if err := repo.UpdatePath("fp-1", "/music/b/a.mp3", time.Now()); err != nil {
			t.Fatalf("failed to update path: %v", err)
		}

		got, err := repo.Get("fp-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Path != "/music/b/a.mp3" {
			t.Errorf("expected moved path, got %s", got.Path)
		}
	})

	t.Run("MarkMissing and ListActive", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		if err := repo.Upsert(testTrack("fp-1", "/music/a.mp3")); err != nil {
			t.Fatal(err)
		}
		if err := repo.Upsert(testTrack("fp-2", "/music/b.mp3")); err != nil {
			t.Fatal(err)
		}

		if err := repo.MarkMissing("fp-1"); err != nil {
			t.Fatalf("failed to mark missing: %v", err)
		}

		active, err := repo.ListActive()
		if err != nil {
			t.Fatal(err)
		}
		if len(active) != 1 || active[0].Fingerprint != "fp-2" {
			t.Errorf("expected only fp-2 active, got %+v", active)
		}

		all, err := repo.ListAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 tracks total, got %d", len(all))
		}

		// Touch resurrects the missing track.
		if err := repo.Touch("fp-1", time.Now()); err != nil {
			t.Fatal(err)
		}
		active, err = repo.ListActive()
		if err != nil {
			t.Fatal(err)
		}
		if len(active) != 2 {
			t.Errorf("expected 2 active after touch, got %d", len(active))
		}
	})

	t.Run("ListActive stable order", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		for _, p := range []string{"/music/c.mp3", "/music/a.mp3", "/music/b.mp3"} {
			if err := repo.Upsert(testTrack("fp-"+p, p)); err != nil {
				t.Fatal(err)
			}
		}

		active, err := repo.ListActive()
		if err != nil {
			t.Fatal(err)
		}

		want := []string{"/music/a.mp3", "/music/b.mp3", "/music/c.mp3"}
		for i, track := range active {
			if track.Path != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], track.Path)
			}
		}
	})

	t.Run("SetOverrides", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		if err := repo.Upsert(testTrack("fp-1", "/music/a.mp3")); err != nil {
			t.Fatal(err)
		}

		if err := repo.SetOverrides("fp-1", "Better Title", "", ""); err != nil {
			t.Fatalf("failed to set overrides: %v", err)
		}

		got, err := repo.Get("fp-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.DisplayTitle() != "Better Title" {
			t.Errorf("expected override title, got %s", got.DisplayTitle())
		}
		if got.DisplayArtist() != "Test Artist" {
			t.Errorf("cleared override should fall back to parsed artist, got %s", got.DisplayArtist())
		}
		if got.Title != "Test Title" {
			t.Error("override must not clobber the parsed title")
		}
	})

	t.Run("unknown fingerprint is NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		if _, err := repo.Get("nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound from Get, got %v", err)
		}
		if err := repo.MarkMissing("nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound from MarkMissing, got %v", err)
		}
		if err := repo.UpdatePath("nope", "/x", time.Now()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound from UpdatePath, got %v", err)
		}
	})
}

func TestBehaviorRepository(t *testing.T) {
	t.Run("Mutate round trip", func(t *testing.T) {
		db := setupTestDB(t)
		tracks := NewTrackRepository(db)
		behaviors := NewBehaviorRepository(db)

		if err := tracks.Upsert(testTrack("fp-1", "/music/a.mp3")); err != nil {
			t.Fatal(err)
		}

		playedAt := time.Now().UTC().Truncate(time.Second)
		err := behaviors.Mutate("fp-1", func(rec *models.BehaviorRecord) {
			rec.PlayCount++
			rec.CompletedCount++
			rec.ListenedSecs += 180
			rec.Affinity = 0.6
			rec.LastPlayedAt = playedAt
		})
		if err != nil {
			t.Fatalf("failed to mutate behavior: %v", err)
		}

		rec, err := behaviors.Get("fp-1")
		if err != nil {
			t.Fatal(err)
		}
		if rec.PlayCount != 1 || rec.CompletedCount != 1 {
			t.Errorf("counts not persisted: %+v", rec)
		}
		if rec.Affinity != 0.6 {
			t.Errorf("expected affinity 0.6, got %f", rec.Affinity)
		}
		if !rec.LastPlayedAt.Equal(playedAt) {
			t.Errorf("expected last played %v, got %v", playedAt, rec.LastPlayedAt)
		}
	})

	t.Run("Mutate unknown fingerprint", func(t *testing.T) {
		db := setupTestDB(t)
		behaviors := NewBehaviorRepository(db)

		err := behaviors.Mutate("nope", func(rec *models.BehaviorRecord) {})
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("All", func(t *testing.T) {
		db := setupTestDB(t)
		tracks := NewTrackRepository(db)
		behaviors := NewBehaviorRepository(db)

		for _, fp := range []string{"fp-1", "fp-2", "fp-3"} {
			if err := tracks.Upsert(testTrack(fp, "/music/"+fp+".mp3")); err != nil {
				t.Fatal(err)
			}
		}

		all, err := behaviors.All()
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 behavior records, got %d", len(all))
		}
		if _, ok := all["fp-2"]; !ok {
			t.Error("expected fp-2 in behavior map")
		}
	})
}

func TestObservationRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewObservationRepository(db)

	mtime := time.Now().UTC().Truncate(time.Second)
	obs := Observation{Path: "/music/a.mp3", Fingerprint: "fp-1", Size: 4096, ModTime: mtime}

	if err := repo.Put(obs); err != nil {
		t.Fatalf("failed to put observation: %v", err)
	}

	got, ok, err := repo.Get("/music/a.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected observation to exist")
	}
	if got.Fingerprint != "fp-1" || got.Size != 4096 || !got.ModTime.Equal(mtime) {
		t.Errorf("observation not round-tripped: %+v", got)
	}

	// Replace on conflict.
	obs.Size = 8192
	if err := repo.Put(obs); err != nil {
		t.Fatal(err)
	}
	got, _, _ = repo.Get("/music/a.mp3")
	if got.Size != 8192 {
		t.Errorf("expected replaced size 8192, got %d", got.Size)
	}

	paths, err := repo.Paths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths["/music/a.mp3"] != "fp-1" {
		t.Errorf("unexpected paths map: %v", paths)
	}

	if err := repo.Delete("/music/a.mp3"); err != nil {
		t.Fatal(err)
	}
	_, ok, _ = repo.Get("/music/a.mp3")
	if ok {
		t.Error("deleted observation should be gone")
	}
}

func TestSessionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)

	started := time.Now().UTC().Add(-3 * time.Minute).Truncate(time.Second)
	session := models.PlaySession{
		ID:               shared.GenerateID(),
		Fingerprint:      "fp-1",
		StartedAt:        started,
		EndedAt:          started.Add(170 * time.Second),
		ListenedSecs:     170,
		PositionFraction: 0.94,
		Outcome:          "completed",
	}

	if err := repo.Append(session); err != nil {
		t.Fatalf("failed to append session: %v", err)
	}

	sessions, err := repo.ForTrack("fp-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Outcome != "completed" || sessions[0].PositionFraction != 0.94 {
		t.Errorf("session not round-tripped: %+v", sessions[0])
	}

	if sessions, _ := repo.ForTrack("fp-other"); len(sessions) != 0 {
		t.Errorf("expected no sessions for other fingerprint, got %d", len(sessions))
	}
}
