package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"cadence/internal/tasks"
)

// Scan reconciles the configured roots (or the --root overrides) against
// the catalog and prints a one-line summary. With --verbose each file is
// reported as the reconciler reaches it.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	cat, err := r.openCatalog(cmd.String("config"))
	if err != nil {
		return err
	}
	defer cat.Close()

	roots := cat.roots
	if override := cmd.StringSlice("root"); len(override) > 0 {
		roots = override
	}
	if len(roots) == 0 {
		return fmt.Errorf("no library roots configured")
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if cmd.Bool("verbose") {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := cat.engine.Rescan(ctx, progress, roots)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	r.writePlain("%s\n", result)
	return nil
}
