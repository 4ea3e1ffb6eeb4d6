// Package tasks orchestrates long-running library maintenance with real-time progress reporting.
//
// # Core Operations
//
// The [MaintenanceEngine] interface defines two operations:
//
//  1. [MaintenanceEngine.Rescan] : Reconcile the library roots against the catalog
//     - Walks every configured root
//     - Streams per-file progress while the reconciler hashes and matches files
//     - Returns the reconciler's scan summary
//
//  2. [MaintenanceEngine.BulkExport] : Write one export file per album
//     - Groups the active catalog by album, sorted by affinity
//     - Runs a bounded worker pool so large libraries export concurrently
//     - Records partial failures in the result and writes a JSON manifest
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced UI rendering. Updates use select with default
// to prevent blocking; a slow consumer loses updates rather than stalling
// the operation.
//
// # Implementation
//
// [LibraryEngine] implements [MaintenanceEngine] with dependencies on:
//   - [library.Reconciler] : filesystem to catalog reconciliation
//   - [repositories.TrackRepository] and [repositories.BehaviorRepository] : catalog access
//   - [behavior.Tracker] : decayed affinity reads for export ordering
package tasks
