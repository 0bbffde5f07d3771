package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/tejashwikalptaru/tunequeue/internal/app"
	"github.com/tejashwikalptaru/tunequeue/internal/config"
	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

const defaultServeAddr = "127.0.0.1:8765"

// Runner holds the command actions and their I/O.
type Runner struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// newApp is replaced in tests to inject a scripted player.
	newApp func(app.Config) (*app.Application, error)
}

// NewRunner creates a runner reading controls from in.
func NewRunner(in io.Reader, out, errOut io.Writer) *Runner {
	return &Runner{
		in:     in,
		out:    out,
		errOut: errOut,
		newApp: app.NewApplication,
	}
}

// loadConfig reads the config file and applies global flag overrides.
func (r *Runner) loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if backend := cmd.String("backend"); backend != "" {
		cfg.Player.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func playOverrides(cmd *cli.Command) (*app.PreferenceOverrides, error) {
	var o app.PreferenceOverrides
	set := false

	if cmd.IsSet("shuffle") {
		o.Shuffle = lo.ToPtr(cmd.Bool("shuffle"))
		set = true
	}
	if cmd.IsSet("muted") {
		o.Muted = lo.ToPtr(cmd.Bool("muted"))
		set = true
	}
	if cmd.IsSet("repeat") {
		mode, err := domain.ParseRepeatMode(cmd.String("repeat"))
		if err != nil {
			return nil, err
		}
		o.Repeat = &mode
		set = true
	}

	if !set {
		return nil, nil
	}
	return &o, nil
}

// Play queues the arguments and runs the interactive controls.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	file, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	overrides, err := playOverrides(cmd)
	if err != nil {
		return err
	}

	application, err := r.newApp(app.Config{File: file, LogOutput: r.errOut, Overrides: overrides})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(r.errOut, "shutdown error: %v\n", err)
		}
	}()

	out := newSyncWriter(r.out)
	unwatch := watchSession(application.EventBus(), out)
	defer unwatch()

	tracks, err := application.Queue(ctx, cmd.Args().Slice())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "queued %d track(s)\n", len(tracks))

	if addr := cmd.String("http"); addr != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := application.ServeHTTP(serveCtx, addr); err != nil {
				application.Logger().Error("http control surface stopped", slog.Any("error", err))
			}
		}()
	}

	printHelp(out)
	return runControls(ctx, application.Engine(), r.in, out)
}

// Serve runs the HTTP control surface until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	file, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	addr := lo.CoalesceOrEmpty(cmd.String("addr"), file.HTTP.Addr, defaultServeAddr)

	application, err := r.newApp(app.Config{File: file, LogOutput: r.errOut})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(r.errOut, "shutdown error: %v\n", err)
		}
	}()

	return application.ServeHTTP(ctx, addr)
}

// ConfigInit writes the default configuration file.
func (r *Runner) ConfigInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "wrote %s\n", path)
	return nil
}

// ConfigShow prints the effective configuration as TOML.
func (r *Runner) ConfigShow(_ context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	return toml.NewEncoder(r.out).Encode(cfg)
}

// Version prints build information.
func (r *Runner) Version(_ context.Context, _ *cli.Command) error {
	fmt.Fprintln(r.out, app.GetVersionInfo().FullString())
	return nil
}
