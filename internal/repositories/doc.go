// Package repositories implements SQLite persistence for the catalog.
//
// Every write is one short transaction, so the writes of a long reconciler
// scan and the writes of playback behavior tracking interleave without
// blocking each other, and a crash can never leave a half-written record
// visible to readers.
//
// Key Implementations:
//   - [TrackRepository] : tracks keyed by content fingerprint, with the
//     secondary path lookup the reconciler uses for move detection
//   - [BehaviorRepository] : per-track listening stats; [BehaviorRepository.Mutate]
//     gives the tracker read-modify-write atomicity per fingerprint
//   - [ObservationRepository] : the (path, size, mtime) memory that lets a
//     rescan skip rehashing unchanged files
//   - [SessionRepository] : append-only play session log
//
// Tracks are marked missing rather than deleted when their file disappears,
// preserving behavior history across unmounted drives and re-downloads.
package repositories
