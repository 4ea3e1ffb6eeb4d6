// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that touches the catalog.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles first-run initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the catalog database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// scanCommand reconciles the library roots against the catalog.
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "scan",
		Aliases: []string{"refresh"},
		Usage:   "Reconcile the library roots against the catalog",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringSliceFlag{
				Name:  "root",
				Usage: "Scan this root instead of the configured ones (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print per-file progress while scanning",
			},
		},
		Action: r.Scan,
	}
}

// tracksCommand lists the catalog.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tracks",
		Aliases: []string{"ls"},
		Usage:   "List cataloged tracks",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "missing",
				Usage: "Show only tracks whose file has disappeared",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Tracks,
	}
}

// playCommand launches the interactive player.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Launch the interactive player",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Rescan automatically when files change under the roots",
			},
			&cli.StringFlag{
				Name:  "player",
				Usage: "External player binary to use for audio output",
			},
			&cli.BoolFlag{
				Name:  "no-scan",
				Usage: "Skip the startup library scan",
			},
		},
		Action: r.Play,
	}
}

// exportCommand writes the catalog to a file.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the catalog with listening stats to a file",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: csv, md, or txt",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Title for the export document",
				Value: "Library",
			},
			&cli.BoolFlag{
				Name:  "split",
				Usage: "Write one file per album into a directory instead of a single file",
			},
		},
		Action: r.Export,
	}
}

// statsCommand summarizes listening behavior.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show listening stats and top tracks by affinity",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of tracks to show",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Stats,
	}
}
