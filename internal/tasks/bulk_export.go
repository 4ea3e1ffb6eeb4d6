package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cadence/internal/formatter"
)

// BulkExportOpts contains configuration for bulk album exports.
type BulkExportOpts struct {
	Format     string // Export format: csv, md, txt
	OutputDir  string // Base output directory (default: library_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 4)
}

// AlbumExportJob is one album's worth of tracks queued for a worker.
type AlbumExportJob struct {
	Album  string
	Export *formatter.Export
}

// AlbumExportResult records the outcome of exporting one album.
type AlbumExportResult struct {
	Album  string `json:"album"`
	File   string `json:"file,omitempty"`
	Tracks int    `json:"tracks"`
	Error  string `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	TotalAlbums       int                 `json:"total_albums"`
	SuccessfulExports int                 `json:"successful_exports"`
	FailedExports     int                 `json:"failed_exports"`
	OutputDirectory   string              `json:"output_directory"`
	ManifestPath      string              `json:"manifest_path,omitempty"`
	Results           []AlbumExportResult `json:"results"`
}

// BulkExport writes one file per album, concurrently, with a worker pool.
//
// Partial failures are recorded in the result instead of aborting the run,
// and a manifest file summarizing the outcome lands next to the exports.
func (e *LibraryEngine) BulkExport(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.tracks == nil {
		return nil, fmt.Errorf("track repository not initialized")
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("library_export_%d", time.Now().Unix())
	}
	if opts.Format == "" {
		opts.Format = "csv"
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	albums, err := e.collectAlbums()
	if err != nil {
		return nil, err
	}

	result := &BulkExportResult{
		TotalAlbums:     len(albums),
		OutputDirectory: opts.OutputDir,
		Results:         make([]AlbumExportResult, 0, len(albums)),
	}

	jobs := make(chan AlbumExportJob, len(albums))
	results := make(chan AlbumExportResult, len(albums))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		for i, job := range albums {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			default:
			}
			e.sendProgress(progress, exportingGroupUpdate(i+1, len(albums), job.Album))
			jobs <- job
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Error == "" {
			result.SuccessfulExports++
			e.sendProgress(progress, exportCompletedUpdate(completed, len(albums), res.Album, res.File))
		} else {
			result.FailedExports++
			e.sendProgress(progress, exportFailedUpdate(completed, len(albums), res.Album, fmt.Errorf("%s", res.Error)))
		}
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Album < result.Results[j].Album
	})

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return result, fmt.Errorf("export completed but failed to build manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// collectAlbums groups the active catalog into one export per album,
// sorted by affinity within each album.
func (e *LibraryEngine) collectAlbums() ([]AlbumExportJob, error) {
	tracks, err := e.tracks.ListActive()
	if err != nil {
		return nil, err
	}
	records, err := e.behaviors.All()
	if err != nil {
		return nil, err
	}
	affinities, err := e.tracker.Affinities()
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]formatter.Entry)
	for _, track := range tracks {
		album := track.DisplayAlbum()
		grouped[album] = append(grouped[album], formatter.Entry{
			Track:    track,
			Behavior: records[track.Fingerprint],
			Affinity: affinities[track.Fingerprint],
		})
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]AlbumExportJob, 0, len(names))
	for _, name := range names {
		entries := grouped[name]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Affinity > entries[j].Affinity })
		jobs = append(jobs, AlbumExportJob{
			Album:  name,
			Export: &formatter.Export{Title: name, Entries: entries},
		})
	}
	return jobs, nil
}

// exportWorker is a worker goroutine that exports albums from the jobs channel.
func (e *LibraryEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan AlbumExportJob,
	results chan<- AlbumExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportSingleAlbum(job, opts)
	}
}

// exportSingleAlbum writes one album's export file.
func (e *LibraryEngine) exportSingleAlbum(job AlbumExportJob, opts BulkExportOpts) AlbumExportResult {
	result := AlbumExportResult{
		Album:  job.Album,
		Tracks: len(job.Export.Entries),
	}

	path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.%s", sanitizeFilename(job.Album), exportExtension(opts.Format)))
	if err := formatter.WriteExport(job.Export, opts.Format, path); err != nil {
		result.Error = err.Error()
		return result
	}

	result.File = path
	return result
}

// sanitizeFilename keeps album names filesystem-safe.
func sanitizeFilename(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.' || r == ' ':
			return r
		default:
			return '_'
		}
	}, name)
	mapped = strings.TrimSpace(mapped)
	if mapped == "" {
		return "untitled"
	}
	return mapped
}

func exportExtension(format string) string {
	switch format {
	case "md", "markdown":
		return "md"
	case "txt", "text":
		return "txt"
	default:
		return "csv"
	}
}
