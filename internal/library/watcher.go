package library

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"cadence/internal/shared"
)

// Watcher observes the library roots and triggers a reconciliation scan
// when files change under them. The discovery/download tool drops files
// in bursts, so triggers are debounced: a quiet period must elapse after
// the last event, and a rate limiter caps how often scans may fire even
// under a constant trickle of events.
type Watcher struct {
	reconciler *Reconciler
	roots      []string
	logger     *log.Logger

	quiet   time.Duration
	limiter *rate.Limiter
}

// NewWatcher creates a watcher over roots. rescansPerMinute bounds scan
// frequency; quiet is the settle period after the last filesystem event.
func NewWatcher(reconciler *Reconciler, roots []string, rescansPerMinute float64, quiet time.Duration, logger *log.Logger) *Watcher {
	if rescansPerMinute <= 0 {
		rescansPerMinute = 6
	}
	if quiet <= 0 {
		quiet = 2 * time.Second
	}
	return &Watcher{
		reconciler: reconciler,
		roots:      roots,
		logger:     shared.WithLogger(logger, "component", "watcher"),
		quiet:      quiet,
		limiter:    rate.NewLimiter(rate.Limit(rescansPerMinute/60), 1),
	}
}

// Run blocks watching for changes until ctx is cancelled. Each triggered
// scan runs under ctx, so cancelling the watcher also cancels a scan in
// flight. Scan results are reported through onScan when it is non-nil.
func (w *Watcher) Run(ctx context.Context, onScan func(*ScanResult, error)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer fw.Close()

	for _, root := range w.roots {
		if err := w.addRecursive(fw, root); err != nil {
			return err
		}
	}

	var pending <-chan time.Time
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			// New directories need watching too; the download tool
			// creates Artist/Album trees as it goes.
			if event.Op.Has(fsnotify.Create) {
				if err := w.addRecursive(fw, event.Name); err != nil {
					w.logger.Debug("could not watch new path", "path", event.Name, "error", err)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.quiet)
			} else {
				timer.Reset(w.quiet)
			}
			pending = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-pending:
			pending = nil
			if !w.limiter.Allow() {
				// Too soon after the last scan; re-arm so the burst is
				// picked up once the limiter refills.
				timer.Reset(w.quiet)
				pending = timer.C
				continue
			}

			result, err := w.reconciler.Scan(ctx, w.roots)
			if err != nil && ctx.Err() == nil {
				w.logger.Error("triggered scan failed", "error", err)
			}
			if onScan != nil {
				onScan(result, err)
			}
		}
	}
}

// relevant filters watcher noise down to events that can change the
// catalog.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		return true
	}
	if event.Op.Has(fsnotify.Write) {
		return audioExtensions[strings.ToLower(filepath.Ext(event.Name))]
	}
	return false
}

// addRecursive watches path and every directory below it. fsnotify does
// not recurse on its own.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := fw.Add(p); err != nil {
			w.logger.Debug("could not watch directory", "path", p, "error", err)
		}
		return nil
	})
}
