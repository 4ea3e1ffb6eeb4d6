// Package catalog computes content fingerprints for audio files.
//
// A fingerprint is a hex-encoded SHA-256 of the file's bytes, streamed so
// large files never need to fit in memory. It is byte-stable across
// machines, which is what lets the reconciler recognize a file after a
// move or rename. Whether a file is safe to hash (fully downloaded, size
// stable) is the caller's concern; this package is pure.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"cadence/internal/models"
	"cadence/internal/shared"
)

// FingerprintSize is the length of the hex-encoded digest.
const FingerprintSize = sha256.Size * 2

// Fingerprint hashes the file at path and returns its content identity.
// Returns a wrapped [shared.ErrUnreadableFile] when the file cannot be
// opened or read.
func Fingerprint(path string) (models.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", shared.ErrUnreadableFile, path, err)
	}
	defer f.Close()

	return FingerprintReader(f)
}

// FingerprintReader hashes an already-open stream. Split out so tests can
// fingerprint byte buffers without touching the filesystem.
func FingerprintReader(r io.Reader) (models.Fingerprint, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUnreadableFile, err)
	}

	return models.Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}
