package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"cadence/internal/behavior"
	"cadence/internal/library"
	"cadence/internal/repositories"
	"cadence/internal/shared"
	"cadence/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, scanCommand, tracksCommand, playCommand, statsCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// catalog bundles the opened store and the engines built over it.
type catalog struct {
	db           *sql.DB
	tracks       *repositories.TrackRepository
	behaviors    *repositories.BehaviorRepository
	observations *repositories.ObservationRepository
	sessions     *repositories.SessionRepository
	tracker      *behavior.Tracker
	reconciler   *library.Reconciler
	engine       *tasks.LibraryEngine
	roots        []string
}

func (c *catalog) Close() error {
	return c.db.Close()
}

// openCatalog loads config (when the flag points at a file), opens the
// database, and wires the repositories and engines every command uses.
func (r *Runner) openCatalog(configPath string) (*catalog, error) {
	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
			r.config = loaded
		} else {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	tracks := repositories.NewTrackRepository(db)
	behaviors := repositories.NewBehaviorRepository(db)
	observations := repositories.NewObservationRepository(db)
	sessions := repositories.NewSessionRepository(db)
	tracker := behavior.NewTracker(config.Behavior, behaviors, sessions, r.logger)
	scanner := library.NewScanner(r.logger)
	reconciler := library.NewReconciler(scanner, tracks, observations, config.Library.SettleWindow(), r.logger)

	return &catalog{
		db:           db,
		tracks:       tracks,
		behaviors:    behaviors,
		observations: observations,
		sessions:     sessions,
		tracker:      tracker,
		reconciler:   reconciler,
		engine:       tasks.NewLibraryEngine(reconciler, tracks, behaviors, tracker),
		roots:        expandRoots(config.Library.Roots),
	}, nil
}

// expandRoots resolves a leading ~ in each configured library root.
func expandRoots(roots []string) []string {
	home, err := os.UserHomeDir()
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		if err == nil && strings.HasPrefix(root, "~") {
			root = filepath.Join(home, strings.TrimPrefix(root, "~"))
		}
		out = append(out, root)
	}
	return out
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
