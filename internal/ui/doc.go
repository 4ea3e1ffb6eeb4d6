// Package ui implements the interactive player using bubbletea's Elm architecture.
//
// The TUI is a single library view with a transport footer:
//   - [LibraryView] : Browse the active catalog and start playback
//   - [EditView] : Override a track's title/artist/album tags
//
// The [Model] implements bubbletea's standard Init/Update/View pattern. Playback
// state changes arrive asynchronously: the session pushes snapshots through a
// channel and the model re-renders on each one, so the position line and the
// now-playing title track the audio without polling.
//
// Keyboard control follows the player conventions: space toggles, n/b step
// forward/back, z and r cycle shuffle and repeat, +/- adjust volume, F5
// rescans the library, e edits tags. Contextual help renders via
// charmbracelet/bubbles/help.
package ui
