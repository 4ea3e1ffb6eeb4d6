package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"cadence/internal/models"
)

// trackRow is the JSON shape for one listed track.
type trackRow struct {
	Fingerprint string  `json:"fingerprint"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Path        string  `json:"path"`
	Format      string  `json:"format"`
	Duration    float64 `json:"duration_secs"`
	Missing     bool    `json:"missing"`
	Affinity    float64 `json:"affinity"`
}

// Tracks lists the catalog, active tracks by default or the missing ones
// with --missing.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	cat, err := r.openCatalog(cmd.String("config"))
	if err != nil {
		return err
	}
	defer cat.Close()

	var tracks []models.Track
	if cmd.Bool("missing") {
		all, err := cat.tracks.ListAll()
		if err != nil {
			return err
		}
		for _, track := range all {
			if track.Missing {
				tracks = append(tracks, track)
			}
		}
	} else {
		if tracks, err = cat.tracks.ListActive(); err != nil {
			return err
		}
	}

	affinities, err := cat.tracker.Affinities()
	if err != nil {
		return err
	}

	rows := make([]trackRow, len(tracks))
	for i, track := range tracks {
		rows[i] = trackRow{
			Fingerprint: string(track.Fingerprint),
			Title:       track.DisplayTitle(),
			Artist:      track.DisplayArtist(),
			Album:       track.DisplayAlbum(),
			Path:        track.Path,
			Format:      track.Format,
			Duration:    track.DurationSecs,
			Missing:     track.Missing,
			Affinity:    affinities[track.Fingerprint],
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	if len(rows) == 0 {
		r.writePlain("no tracks\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("%d tracks", len(rows)))
	for _, row := range rows {
		marker := " "
		if row.Missing {
			marker = "!"
		}
		r.writePlain("%s %-40s %-24s %.2f\n", marker, truncate(row.Title, 40), truncate(row.Artist, 24), row.Affinity)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
