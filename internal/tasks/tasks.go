// package tasks implements long-running library maintenance operations.
//
// The core abstraction is MaintenanceEngine, which orchestrates rescans and
// bulk exports. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"cadence/internal/behavior"
	"cadence/internal/library"
	"cadence/internal/repositories"
)

// MaintenanceEngine defines the library maintenance operations.
type MaintenanceEngine interface {
	// Rescan reconciles the library roots against the catalog, reporting
	// per-file progress as the reconciler works through the tree.
	Rescan(ctx context.Context, progress chan<- ProgressUpdate, roots []string) (*library.ScanResult, error)

	// BulkExport writes one export file per album to a directory, plus a
	// manifest summarizing which albums succeeded.
	BulkExport(ctx context.Context, progress chan<- ProgressUpdate, opts BulkExportOpts) (*BulkExportResult, error)
}

// LibraryEngine implements MaintenanceEngine over the catalog.
type LibraryEngine struct {
	reconciler *library.Reconciler
	tracks     *repositories.TrackRepository
	behaviors  *repositories.BehaviorRepository
	tracker    *behavior.Tracker
}

// NewLibraryEngine creates a LibraryEngine with the provided dependencies.
func NewLibraryEngine(
	reconciler *library.Reconciler,
	tracks *repositories.TrackRepository,
	behaviors *repositories.BehaviorRepository,
	tracker *behavior.Tracker,
) *LibraryEngine {
	return &LibraryEngine{
		reconciler: reconciler,
		tracks:     tracks,
		behaviors:  behaviors,
		tracker:    tracker,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Rescan reconciles every root against the catalog, streaming per-file
// progress while the reconciler runs.
func (e *LibraryEngine) Rescan(ctx context.Context, progress chan<- ProgressUpdate, roots []string) (*library.ScanResult, error) {
	if e.reconciler == nil {
		return nil, fmt.Errorf("reconciler not initialized")
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no library roots to scan")
	}

	e.sendProgress(progress, walkRootsUpdate(len(roots)))

	e.reconciler.SetProgress(func(done, total int, path string) {
		e.sendProgress(progress, reconcileFileUpdate(done, total, path))
	})
	defer e.reconciler.SetProgress(nil)

	result, err := e.reconciler.Scan(ctx, roots)
	if err != nil {
		return result, err
	}

	e.sendProgress(progress, scanCompleteUpdate(result))
	return result, nil
}
