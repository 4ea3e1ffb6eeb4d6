// Package models defines the domain entities of the cadence library player.
//
// The package contains three categories of types:
//
// 1. Catalog entities, persisted by internal/repositories:
//   - [Track] : an audio file keyed by content [Fingerprint]
//   - [BehaviorRecord] : aggregate play/skip/completion stats and affinity
//   - [PlaySession] : one logged listen from start to skip or completion
//
// 2. Playback events:
//   - [PlayEvent] with [EventKind] : transitions reported by the playback
//     session and folded into behavior records by the tracker
//
// 3. Playback state:
//   - [PlaybackState] with [TransportState] and [RepeatMode] : the snapshot
//     the playback session hands to the UI and CLI
//
// Identity is content-addressed: a [Fingerprint] never changes once assigned,
// while the track's path follows the file around on disk.
package models
