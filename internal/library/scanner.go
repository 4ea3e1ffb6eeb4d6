// Package library keeps the catalog reconciled with the audio files on
// disk: a scanner that enumerates and tags files under the watched roots,
// a reconciler that diffs the scan against the catalog and applies
// add/move/missing transitions, and an fsnotify watcher that triggers
// rescans when the download tool drops new files.
package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dhowden/tag"

	"cadence/internal/shared"
)

// audioExtensions are the file types the scanner recognizes.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".oga":  true,
	".mp4":  true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
}

// maxFileSize guards against hashing absurd files; nothing legitimate in a
// music library exceeds 1 GiB.
const maxFileSize = 1 << 30

// FileInfo is one candidate audio file found by a walk.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Scanner enumerates audio files and extracts best-effort metadata.
type Scanner struct {
	logger *log.Logger
}

// NewScanner creates a Scanner logging through the given logger.
func NewScanner(logger *log.Logger) *Scanner {
	return &Scanner{logger: shared.WithLogger(logger, "component", "scanner")}
}

// Walk enumerates every recognized audio file under root, in lexical
// order. Unreadable entries below the root are logged and skipped; only a
// root that cannot be enumerated at all fails the walk.
func (s *Scanner) Walk(ctx context.Context, root string) ([]FileInfo, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrUnreadableRoot, root, err)
	}

	var files []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == root {
				return fmt.Errorf("%w: %s: %v", shared.ErrUnreadableRoot, root, err)
			}
			s.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if !audioExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warn("skipping unstatable file", "path", path, "error", err)
			return nil
		}
		if info.Size() == 0 || info.Size() > maxFileSize {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}

		files = append(files, FileInfo{Path: abs, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Metadata is the best-effort tag data for one file.
type Metadata struct {
	Title        string
	Artist       string
	Album        string
	Format       string
	DurationSecs float64
}

// ReadMetadata parses tags from an audio file, falling back to path
// components for whatever the tags are missing. Tag parse failures are not
// errors; an untagged file is still a playable track.
func (s *Scanner) ReadMetadata(path string) Metadata {
	meta := Metadata{
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("could not open file for tagging", "path", path, "error", err)
		return fillFromPath(meta, path)
	}
	defer f.Close()

	parsed, err := tag.ReadFrom(f)
	if err != nil {
		s.logger.Debug("no readable tags", "path", path, "error", err)
		return fillFromPath(meta, path)
	}

	meta.Title = parsed.Title()
	meta.Artist = parsed.Artist()
	meta.Album = parsed.Album()

	return fillFromPath(meta, path)
}

// fillFromPath fills empty fields from the Artist/Album/Track.ext layout
// the download tool writes.
func fillFromPath(meta Metadata, path string) Metadata {
	if meta.Title == "" {
		base := filepath.Base(path)
		meta.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	dir := filepath.Dir(path)
	if meta.Album == "" {
		meta.Album = filepath.Base(dir)
	}
	if meta.Artist == "" {
		meta.Artist = filepath.Base(filepath.Dir(dir))
	}

	return meta
}
