package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"cadence/internal/library"
	"cadence/internal/models"
)

var (
	_ tea.Msg = stateMsg{}
	_ tea.Msg = libraryLoadedMsg{}
	_ tea.Msg = scanDoneMsg{}
	_ tea.Msg = actionErrMsg{}
)

// stateMsg carries a fresh playback snapshot pushed by the session.
type stateMsg struct {
	state models.PlaybackState
}

// libraryLoadedMsg carries the reloaded active track list with each
// track's current affinity.
type libraryLoadedMsg struct {
	tracks     []models.Track
	affinities map[models.Fingerprint]float64
	err        error
}

// scanDoneMsg reports a finished manual rescan.
type scanDoneMsg struct {
	result *library.ScanResult
	err    error
}

// actionErrMsg surfaces a failed transport action without quitting.
type actionErrMsg struct {
	err error
}

// ScanComplete wraps a finished background scan so the watcher goroutine
// can deliver it with [tea.Program.Send].
func ScanComplete(result *library.ScanResult, err error) tea.Msg {
	return scanDoneMsg{result: result, err: err}
}
