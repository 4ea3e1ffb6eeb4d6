package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"cadence/internal/library"
	"cadence/internal/playback"
	"cadence/internal/selection"
	"cadence/internal/shared"
	"cadence/internal/ui"
)

// Play runs the startup scan and launches the interactive player.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/cadence-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	cat, err := r.openCatalog(cmd.String("config"))
	if err != nil {
		return err
	}
	defer cat.Close()

	if len(cat.roots) == 0 {
		return fmt.Errorf("no library roots configured")
	}

	if !cmd.Bool("no-scan") {
		if result, err := cat.reconciler.Scan(ctx, cat.roots); err != nil {
			r.logger.Warn("startup scan failed", "error", err)
		} else {
			r.logger.Info("startup scan", "summary", result.String())
		}
	}

	output, err := playback.NewExecOutput(cmd.String("player"), r.logger)
	if err != nil {
		return err
	}

	engine := selection.NewEngine(
		cat.tracks,
		cat.tracker,
		r.config.Playback,
		rand.NewSource(time.Now().UnixNano()),
		r.logger,
	)
	session := playback.NewSession(output, engine, cat.tracker, r.config, r.logger)
	defer session.Stop()

	model := ui.NewModel(ctx, session, cat.tracks, cat.tracker, cat.reconciler, cat.roots)
	p := tea.NewProgram(model, tea.WithAltScreen())

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	if cmd.Bool("watch") {
		watcher := library.NewWatcher(
			cat.reconciler,
			cat.roots,
			r.config.Library.WatchRescansPerMinute,
			r.config.Library.SettleWindow(),
			r.logger,
		)
		go func() {
			err := watcher.Run(watchCtx, func(result *library.ScanResult, err error) {
				p.Send(ui.ScanComplete(result, err))
			})
			if err != nil && watchCtx.Err() == nil {
				r.logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
