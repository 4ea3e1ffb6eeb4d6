package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"cadence/internal/formatter"
	"cadence/internal/tasks"
)

// Export writes the catalog with its listening stats to a file in the
// requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	cat, err := r.openCatalog(cmd.String("config"))
	if err != nil {
		return err
	}
	defer cat.Close()

	if cmd.Bool("split") {
		return r.exportSplit(ctx, cmd, cat)
	}

	tracks, err := cat.tracks.ListActive()
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

	export := &formatter.Export{
		Title:   cmd.String("title"),
		Entries: make([]formatter.Entry, len(tracks)),
	}
	for i, track := range tracks {
		export.Entries[i] = formatter.Entry{
			Track:    track,
			Behavior: records[track.Fingerprint],
			Affinity: affinities[track.Fingerprint],
		}
	}
	sort.Slice(export.Entries, func(i, j int) bool {
		return export.Entries[i].Affinity > export.Entries[j].Affinity
	})

	format := cmd.String("format")
	output := cmd.String("output")
	if output == "" {
		output = defaultExportPath(format)
	}
	if err := formatter.WriteExport(export, format, output); err != nil {
		return err
	}

	r.writePlain("exported %d tracks to %s\n", len(export.Entries), output)
	return nil
}

// exportSplit writes one file per album via the maintenance engine.
func (r *Runner) exportSplit(ctx context.Context, cmd *cli.Command, cat *catalog) error {
	result, err := cat.engine.BulkExport(ctx, nil, tasks.BulkExportOpts{
		Format:    cmd.String("format"),
		OutputDir: cmd.String("output"),
	})
	if err != nil {
		return err
	}

	r.writePlain("exported %d albums to %s", result.SuccessfulExports, result.OutputDirectory)
	if result.FailedExports > 0 {
		r.writePlain(" (%d failed)", result.FailedExports)
	}
	r.writePlain("\n")
	return nil
}

// defaultExportPath picks a file name matching the format.
func defaultExportPath(format string) string {
	switch format {
	case "md", "markdown":
		return "library.md"
	case "txt", "text":
		return "library.txt"
	default:
		return fmt.Sprintf("library.%s", format)
	}
}
