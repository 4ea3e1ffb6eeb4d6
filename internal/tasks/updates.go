package tasks

import (
	"fmt"

	"cadence/internal/library"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	WalkRoots Phase = iota
	ReconcileFiles
	SweepMissing
	ExportLibrary
)

func (p Phase) String() string {
	switch p {
	case WalkRoots:
		return "walk_roots"
	case ReconcileFiles:
		return "reconcile_files"
	case SweepMissing:
		return "sweep_missing"
	case ExportLibrary:
		return "export_library"
	default:
		return ""
	}
}

func walkRootsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WalkRoots,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Walking %d library roots...", total),
	}
}

func reconcileFileUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcileFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, path),
	}
}

func scanCompleteUpdate(result *library.ScanResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SweepMissing,
		Step:    1,
		Total:   1,
		Message: result.String(),
		Data:    result,
	}
}

func exportingGroupUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportLibrary,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name, file string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportLibrary,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, name, file),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportLibrary,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
