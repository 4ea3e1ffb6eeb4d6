package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Catalog errors
	ErrStorage      = fmt.Errorf("catalog storage failure")
	ErrNotFound     = fmt.Errorf("fingerprint not known to catalog")
	ErrEmptyCatalog = fmt.Errorf("no active tracks in catalog")

	// Scan errors
	ErrUnreadableFile = fmt.Errorf("file could not be read")
	ErrUnreadableRoot = fmt.Errorf("library root could not be enumerated")

	// Playback errors
	ErrOutputUnavailable = fmt.Errorf("audio output unavailable")
	ErrNothingPlaying    = fmt.Errorf("no track is playing")
	ErrUnplayableCatalog = fmt.Errorf("no playable track found")
)
