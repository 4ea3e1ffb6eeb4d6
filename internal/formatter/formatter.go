// package formatter provides functions to export library and listening data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"cadence/internal/models"
)

// Entry is one exportable row: a track joined with its behavior record
// and current affinity.
type Entry struct {
	Track    models.Track
	Behavior models.BehaviorRecord
	Affinity float64
}

// Export is a named snapshot of the library ready for rendering.
type Export struct {
	Title   string
	Entries []Entry
}

// ExportToCSV converts an Export to CSV with columns: Fingerprint, Title, Artist, Album, Duration, Plays, Skips, Completions, Affinity, Path
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Fingerprint", "Title", "Artist", "Album", "Duration", "Plays", "Skips", "Completions", "Affinity", "Path"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range export.Entries {
		record := []string{
			string(entry.Track.Fingerprint),
			entry.Track.DisplayTitle(),
			entry.Track.DisplayArtist(),
			entry.Track.DisplayAlbum(),
			FormatDuration(entry.Track.Duration()),
			strconv.FormatInt(entry.Behavior.PlayCount, 10),
			strconv.FormatInt(entry.Behavior.SkipCount, 10),
			strconv.FormatInt(entry.Behavior.CompletedCount, 10),
			strconv.FormatFloat(entry.Affinity, 'f', 2, 64),
			entry.Track.Path,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an Export to a Markdown listing
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(export.Entries)))

	buf.WriteString("## Tracks\n\n")
	for i, entry := range export.Entries {
		duration := FormatDuration(entry.Track.Duration())
		albumPart := ""
		if entry.Track.AlbumOverride != "" || entry.Track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", entry.Track.DisplayAlbum())
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s] — affinity %.2f, %d plays\n",
			i+1, entry.Track.DisplayArtist(), entry.Track.DisplayTitle(), albumPart,
			duration, entry.Affinity, entry.Behavior.PlayCount))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an Export to plain text
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Library: %s\n", export.Title))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Entries)))

	for i, entry := range export.Entries {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, entry.Track.DisplayArtist(), entry.Track.DisplayTitle()))
	}

	return buf.Bytes(), nil
}

// FormatDuration renders a duration as m:ss.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// WriteExport renders an Export in the given format ("csv", "md" or
// "txt") and writes it to path.
func WriteExport(export *Export, format, path string) error {
	var data []byte
	var err error

	switch format {
	case "csv":
		data, err = ExportToCSV(export)
	case "md", "markdown":
		data, err = ExportToMarkdown(export)
	case "txt", "text":
		data, err = ExportToText(export)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to render export: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
