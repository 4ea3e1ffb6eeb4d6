package catalog

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"cadence/internal/shared"
)

func TestFingerprint(t *testing.T) {
	t.Run("identical bytes at different paths", func(t *testing.T) {
		tmpDir := t.TempDir()
		content := []byte("RIFF....WAVEfmt not really audio but bytes are bytes")

		pathA := filepath.Join(tmpDir, "a", "track.wav")
		pathB := filepath.Join(tmpDir, "b", "renamed.wav")
		for _, p := range []string{pathA, pathB} {
			if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(p, content, 0644); err != nil {
				t.Fatal(err)
			}
		}

		fpA, err := Fingerprint(pathA)
		if err != nil {
			t.Fatalf("Fingerprint(%s): %v", pathA, err)
		}
		fpB, err := Fingerprint(pathB)
		if err != nil {
			t.Fatalf("Fingerprint(%s): %v", pathB, err)
		}

		if fpA != fpB {
			t.Errorf("same content should fingerprint identically: %s != %s", fpA, fpB)
		}

		if len(fpA) != FingerprintSize {
			t.Errorf("expected fixed width %d, got %d", FingerprintSize, len(fpA))
		}
	})

	t.Run("different bytes differ", func(t *testing.T) {
		tmpDir := t.TempDir()
		pathA := filepath.Join(tmpDir, "a.mp3")
		pathB := filepath.Join(tmpDir, "b.mp3")
		os.WriteFile(pathA, []byte("first"), 0644)
		os.WriteFile(pathB, []byte("second"), 0644)

		fpA, _ := Fingerprint(pathA)
		fpB, _ := Fingerprint(pathB)

		if fpA == fpB {
			t.Error("different content should not collide")
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := Fingerprint(filepath.Join(t.TempDir(), "does-not-exist.flac"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
		if !errors.Is(err, shared.ErrUnreadableFile) {
			t.Errorf("expected ErrUnreadableFile, got %v", err)
		}
	})
}

// TestFingerprintPurity exercises the property that the fingerprint depends
// only on bytes: random buffers hashed via a file round-trip and via the
// reader must agree, and renames never change the result.
func TestFingerprintPurity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tmpDir := t.TempDir()

	for i := 0; i < 25; i++ {
		buf := make([]byte, rng.Intn(1<<16)+1)
		rng.Read(buf)

		direct, err := FingerprintReader(bytes.NewReader(buf))
		if err != nil {
			t.Fatal(err)
		}

		path := filepath.Join(tmpDir, "orig")
		if err := os.WriteFile(path, buf, 0644); err != nil {
			t.Fatal(err)
		}
		viaFile, err := Fingerprint(path)
		if err != nil {
			t.Fatal(err)
		}

		renamed := filepath.Join(tmpDir, "renamed")
		if err := os.Rename(path, renamed); err != nil {
			t.Fatal(err)
		}
		viaRename, err := Fingerprint(renamed)
		if err != nil {
			t.Fatal(err)
		}

		if direct != viaFile || viaFile != viaRename {
			t.Fatalf("fingerprint not a pure function of bytes: %s / %s / %s",
				direct, viaFile, viaRename)
		}
	}
}
