package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"cadence/internal/models"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track    models.Track
	affinity float64
}

func (i trackItem) FilterValue() string {
	return i.track.DisplayTitle() + " " + i.track.DisplayArtist()
}

func (i trackItem) Title() string { return i.track.DisplayTitle() }

func (i trackItem) Description() string {
	desc := i.track.DisplayArtist()
	if album := i.track.DisplayAlbum(); album != "" {
		desc = fmt.Sprintf("%s • %s", desc, album)
	}
	return fmt.Sprintf("%s • %.2f", desc, i.affinity)
}
