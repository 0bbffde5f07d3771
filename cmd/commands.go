package main

import (
	"github.com/urfave/cli/v3"

	"github.com/tejashwikalptaru/tunequeue/internal/app"
)

func newRootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "tunequeue",
		Usage:    "Play a queue of local files and streams through a remote player",
		Version:  app.GetVersionInfo().FullString(),
		Flags:    globalFlags(),
		Commands: r.register(),
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (default: XDG config, then ./config.toml)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Override log.level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Override player.backend (mock or mpv)",
		},
	}
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		playCommand(r),
		serveCommand(r),
		configCommand(r),
		versionCommand(r),
	}
}

// playCommand queues files, folders and URLs and plays them interactively.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play files, folders and URLs",
		ArgsUsage: "[paths or urls...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "shuffle",
				Usage: "Shuffle for this run",
			},
			&cli.StringFlag{
				Name:  "repeat",
				Usage: "Repeat mode for this run (off, all, one)",
			},
			&cli.BoolFlag{
				Name:  "muted",
				Usage: "Start muted",
			},
			&cli.StringFlag{
				Name:  "http",
				Usage: "Also serve the control API on this address",
			},
		},
		Action: r.Play,
	}
}

// serveCommand runs the HTTP control surface without a terminal UI.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP control API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: http.addr, then 127.0.0.1:8765)",
			},
		},
		Action: r.Serve,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: XDG config dir)",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: r.ConfigShow,
			},
		},
	}
}

func versionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Print version information",
		Action: r.Version,
	}
}
