package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"cadence/internal/catalog"
	"cadence/internal/models"
	"cadence/internal/repositories"
	"cadence/internal/shared"
)

// ScanResult summarizes what one reconciliation pass did. A rescan of an
// unchanged library reports zeros everywhere except Unchanged, which is
// how the idempotence tests verify no catalog mutation happened.
type ScanResult struct {
	Scanned   int // audio files considered
	Added     int // new fingerprints
	Moved     int // known fingerprints at a new path
	Refreshed int // same path, file touched but bytes unchanged or re-tagged
	Unchanged int // observation matched, file skipped entirely
	Missing   int // tracks whose path disappeared
	Skipped   int // files too young to hash (still downloading)
	Errors    int // unreadable files, logged and skipped

	// DuplicatePaths are paths whose bytes matched a track already seen
	// this scan; they are recorded but never become a second track.
	DuplicatePaths []string
}

// Reconciler brings the catalog in line with the filesystem state of the
// watched roots.
type Reconciler struct {
	scanner      *Scanner
	tracks       *repositories.TrackRepository
	observations *repositories.ObservationRepository
	logger       *log.Logger

	settle   time.Duration
	now      func() time.Time
	progress func(done, total int, path string)
}

// NewReconciler wires a Reconciler over the catalog repositories. settle
// is how long a file's mtime must be in the past before it is considered
// fully written and safe to hash.
func NewReconciler(
	scanner *Scanner,
	tracks *repositories.TrackRepository,
	observations *repositories.ObservationRepository,
	settle time.Duration,
	logger *log.Logger,
) *Reconciler {
	return &Reconciler{
		scanner:      scanner,
		tracks:       tracks,
		observations: observations,
		logger:       shared.WithLogger(logger, "component", "reconciler"),
		settle:       settle,
		now:          time.Now,
	}
}

// SetProgress installs a callback invoked after each reconciled file.
// Pass nil to remove it. Not safe to call while a Scan is running.
func (r *Reconciler) SetProgress(fn func(done, total int, path string)) {
	r.progress = fn
}

// Scan reconciles every root against the catalog. Each per-file update is
// its own transaction, so a cancelled scan leaves the catalog in whatever
// consistent state the last completed file produced; rerunning simply
// picks up where it left off.
//
// One unreadable file never aborts the scan. The scan as a whole fails
// only when a root cannot be enumerated or the catalog store errors.
func (r *Reconciler) Scan(ctx context.Context, roots []string) (*ScanResult, error) {
	result := &ScanResult{}

	seenPaths := make(map[string]bool)
	// First path seen for each fingerprint this scan; later paths with
	// the same bytes are duplicates, not moves.
	seenFingerprints := make(map[models.Fingerprint]string)

	var files []FileInfo
	for _, root := range roots {
		found, err := r.scanner.Walk(ctx, root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := r.reconcileFile(file, seenPaths, seenFingerprints, result); err != nil {
			return result, err
		}
		if r.progress != nil {
			r.progress(i+1, len(files), file.Path)
		}
	}

	if err := r.sweepMissing(ctx, seenPaths, seenFingerprints, result); err != nil {
		return result, err
	}

	r.logger.Info("scan complete",
		"scanned", result.Scanned,
		"added", result.Added,
		"moved", result.Moved,
		"missing", result.Missing,
		"duplicates", len(result.DuplicatePaths),
		"errors", result.Errors,
	)

	return result, nil
}

// reconcileFile applies the add/move/refresh transition for one file.
func (r *Reconciler) reconcileFile(
	file FileInfo,
	seenPaths map[string]bool,
	seenFingerprints map[models.Fingerprint]string,
	result *ScanResult,
) error {
	result.Scanned++
	seenPaths[file.Path] = true

	// A file modified moments ago is assumed to still be downloading;
	// hashing half a file would mint a fingerprint that never matches the
	// finished bytes. Leave it for the next scan.
	if r.now().Sub(file.ModTime) < r.settle {
		r.logger.Debug("file not settled yet, skipping", "path", file.Path)
		result.Skipped++
		delete(seenPaths, file.Path)
		return nil
	}

	// Unchanged since the last observation means the bytes are the same;
	// skip the hash and write nothing, keeping rescans idempotent.
	if obs, ok, err := r.observations.Get(file.Path); err != nil {
		return err
	} else if ok && obs.Size == file.Size && obs.ModTime.Equal(file.ModTime) {
		seenFingerprints[obs.Fingerprint] = file.Path
		result.Unchanged++
		return nil
	}

	fp, err := catalog.Fingerprint(file.Path)
	if err != nil {
		r.logger.Warn("could not fingerprint file", "path", file.Path, "error", err)
		result.Errors++
		delete(seenPaths, file.Path)
		return nil
	}

	if canonical, dup := seenFingerprints[fp]; dup {
		r.logger.Warn("duplicate file content", "path", file.Path, "canonical", canonical)
		result.DuplicatePaths = append(result.DuplicatePaths, file.Path)
		return r.observations.Put(repositories.Observation{
			Path: file.Path, Fingerprint: fp, Size: file.Size, ModTime: file.ModTime,
		})
	}
	seenFingerprints[fp] = file.Path

	if err := r.applyTransition(fp, file, result); err != nil {
		return err
	}

	return r.observations.Put(repositories.Observation{
		Path: file.Path, Fingerprint: fp, Size: file.Size, ModTime: file.ModTime,
	})
}

func (r *Reconciler) applyTransition(fp models.Fingerprint, file FileInfo, result *ScanResult) error {
	existing, err := r.tracks.Get(fp)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		meta := r.scanner.ReadMetadata(file.Path)
		now := r.now()
		track := &models.Track{
			Fingerprint:  fp,
			Path:         file.Path,
			Format:       meta.Format,
			Size:         file.Size,
			DurationSecs: meta.DurationSecs,
			Title:        meta.Title,
			Artist:       meta.Artist,
			Album:        meta.Album,
			FirstSeen:    now,
			LastSeen:     now,
		}
		if err := r.tracks.Upsert(track); err != nil {
			return err
		}
		r.logger.Info("new track", "path", file.Path, "title", track.DisplayTitle())
		result.Added++

	case err != nil:
		return err

	case existing.Path != file.Path:
		// Same bytes at a new location: the file moved. Identity and
		// behavior history ride along untouched.
		if err := r.tracks.UpdatePath(fp, file.Path, r.now()); err != nil {
			return err
		}
		r.logger.Info("track moved", "from", existing.Path, "to", file.Path)
		result.Moved++

	default:
		// Same path, same bytes, but mtime or size bookkeeping changed
		// (or the track was missing and the file came back).
		if err := r.tracks.Touch(fp, r.now()); err != nil {
			return err
		}
		result.Refreshed++
	}

	return nil
}

// sweepMissing marks tracks whose recorded path was not re-observed. The
// track row stays so a reappearing file resumes its identity and history.
// When the same bytes survive at another path (a duplicate copy), the
// track follows that path instead of going missing.
func (r *Reconciler) sweepMissing(
	ctx context.Context,
	seenPaths map[string]bool,
	seenFingerprints map[models.Fingerprint]string,
	result *ScanResult,
) error {
	prior, err := r.observations.Paths()
	if err != nil {
		return err
	}

	for path, fp := range prior {
		if seenPaths[path] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		track, err := r.tracks.Get(fp)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			// Observation for a duplicate path; no track to mark.
		case err != nil:
			return err
		case track.Path != path:
			// Track already follows another copy of these bytes.
		case seenFingerprints[fp] != "" && seenFingerprints[fp] != path:
			if err := r.tracks.UpdatePath(fp, seenFingerprints[fp], r.now()); err != nil {
				return err
			}
			r.logger.Info("track moved to surviving copy", "from", path, "to", seenFingerprints[fp])
			result.Moved++
		case !track.Missing:
			if err := r.tracks.MarkMissing(fp); err != nil {
				return err
			}
			r.logger.Info("track missing", "path", path)
			result.Missing++
		}

		if err := r.observations.Delete(path); err != nil {
			return err
		}
	}

	return nil
}

// String renders a one-line human summary for CLI output.
func (s *ScanResult) String() string {
	return fmt.Sprintf("%d scanned: %d added, %d moved, %d missing, %d unchanged, %d duplicates, %d skipped, %d errors",
		s.Scanned, s.Added, s.Moved, s.Missing, s.Unchanged, len(s.DuplicatePaths), s.Skipped, s.Errors)
}

// Mutations reports how many catalog writes the scan performed. Zero means
// the scan was a no-op, which a rescan of an unchanged library must be.
func (s *ScanResult) Mutations() int {
	return s.Added + s.Moved + s.Refreshed + s.Missing
}
