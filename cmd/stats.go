package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"
)

// statRow is the JSON shape for one behavior summary line.
type statRow struct {
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	Plays        int64   `json:"plays"`
	Skips        int64   `json:"skips"`
	Completions  int64   `json:"completions"`
	ListenedSecs float64 `json:"listened_secs"`
	Affinity     float64 `json:"affinity"`
}

// Stats prints the top tracks by current (decayed) affinity.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	cat, err := r.openCatalog(cmd.String("config"))
	if err != nil {
		return err
	}
	defer cat.Close()

	tracks, err := cat.tracks.ListAll()
	if err != nil {
		return err
	}
	records, err := cat.behaviors.All()
	if err != nil {
		return err
	}
	affinities, err := cat.tracker.Affinities()
	if err != nil {
		return err
	}

	rows := make([]statRow, 0, len(tracks))
	for _, track := range tracks {
		rec := records[track.Fingerprint]
		rows = append(rows, statRow{
			Title:        track.DisplayTitle(),
			Artist:       track.DisplayArtist(),
			Plays:        rec.PlayCount,
			Skips:        rec.SkipCount,
			Completions:  rec.CompletedCount,
			ListenedSecs: rec.ListenedSecs,
			Affinity:     affinities[track.Fingerprint],
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Affinity > rows[j].Affinity })

	limit := int(cmd.Int("limit"))
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	if len(rows) == 0 {
		r.writePlain("no listening history\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("top %d tracks by affinity", len(rows)))
	for i, row := range rows {
		r.writePlain("%2d. %-36s %-20s %.2f  %d plays, %d skips, %.0f min\n",
			i+1, truncate(row.Title, 36), truncate(row.Artist, 20),
			row.Affinity, row.Plays, row.Skips, row.ListenedSecs/60)
	}
	return nil
}
