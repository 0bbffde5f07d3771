// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tejashwikalptaru/tunequeue/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunequeue/internal/adapter/httpapi"
	"github.com/tejashwikalptaru/tunequeue/internal/adapter/player/mock"
	"github.com/tejashwikalptaru/tunequeue/internal/adapter/player/mpv"
	"github.com/tejashwikalptaru/tunequeue/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunequeue/internal/adapter/repository/sqlite"
	"github.com/tejashwikalptaru/tunequeue/internal/config"
	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/logger"
	"github.com/tejashwikalptaru/tunequeue/internal/metrics"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
	"github.com/tejashwikalptaru/tunequeue/internal/service"
)

const (
	demoReadyDelay  = 300 * time.Millisecond
	restoreTimeout  = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
type Application struct {
	// Core dependencies
	logger *slog.Logger
	config *config.Config

	// Infrastructure
	eventBus *eventbus.SyncEventBus
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	remote   ports.RemotePlayer

	// Repositories
	preferencesRepo ports.PreferencesRepository

	// Services
	libraryService    *service.LibraryService
	preferenceService *service.PreferenceService
	engine            *service.PlaybackEngine

	// Control surface
	httpServer *httpapi.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// Config holds application configuration.
type Config struct {
	// File is the loaded configuration file
	File *config.Config

	// LogOutput receives log output (defaults to stderr)
	LogOutput io.Writer

	// Overrides replaces individual saved preferences for this run without saving them
	Overrides *PreferenceOverrides

	// RemotePlayer replaces the backend selected by File.Player.Backend (for testing)
	RemotePlayer ports.RemotePlayer
}

// PreferenceOverrides replaces individual preferences for one run.
// Nil fields keep the saved value.
type PreferenceOverrides struct {
	Muted   *bool
	Shuffle *bool
	Repeat  *domain.RepeatMode
}

func (o PreferenceOverrides) apply(prefs service.Preferences) service.Preferences {
	if o.Muted != nil {
		prefs.Muted = *o.Muted
	}
	if o.Shuffle != nil {
		prefs.Shuffle = *o.Shuffle
	}
	if o.Repeat != nil {
		prefs.Repeat = *o.Repeat
	}
	return prefs
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	return Config{File: config.Default()}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function. On failure every
// component created so far is released.
func NewApplication(cfg Config) (*Application, error) {
	if cfg.File == nil {
		cfg.File = config.Default()
	}
	app := &Application{config: cfg.File}

	if err := app.wire(cfg); err != nil {
		_ = app.Shutdown()
		return nil, err
	}
	return app, nil
}

func (a *Application) wire(cfg Config) error {
	file := cfg.File

	// Step 1: Create logger
	a.logger = logger.NewLogger(logger.Config{
		Level:  logger.ParseLevel(file.Log.Level, slog.LevelInfo),
		Format: file.Log.Format,
		Output: cfg.LogOutput,
	})
	a.logger.Info("initializing application",
		slog.String("version", GetVersionInfo().FullString()),
		slog.String("backend", file.Player.Backend),
		slog.String("storage", file.Storage.Driver))

	// Step 2: Create an event bus
	a.eventBus = eventbus.NewSyncEventBus()
	a.eventBus.SetLogger(a.logger.With(slog.String("component", "eventbus")))

	// Step 3: Create metrics
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	// Step 4: Create the remote player
	remote, err := a.newRemotePlayer(cfg)
	if err != nil {
		return err
	}
	a.remote = remote

	// Step 5: Create repositories
	repo, err := a.newPreferencesRepository(file.Storage)
	if err != nil {
		return err
	}
	a.preferencesRepo = repo

	// Step 6: Create services (with dependency injection)
	a.libraryService = service.NewLibraryService(a.logger, a.eventBus)

	defaults, err := preferenceDefaults(file)
	if err != nil {
		return err
	}
	a.preferenceService = service.NewPreferenceService(a.logger, a.preferencesRepo, a.eventBus, defaults)

	// Step 7: Create the playback engine
	interval, err := file.PollInterval()
	if err != nil {
		return err
	}
	a.engine = service.NewPlaybackEngine(a.logger, a.remote, a.eventBus, nil, a.metrics, service.EngineConfig{
		Container:    file.Player.Container,
		PollInterval: interval,
	})

	// Step 8: Restore preferences
	if cfg.Overrides != nil {
		a.preferenceService.Override(cfg.Overrides.apply(a.preferenceService.Get()))
	}
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	if err := a.preferenceService.Apply(ctx, a.engine); err != nil {
		return fmt.Errorf("failed to restore preferences: %w", err)
	}

	// Step 9: Create the HTTP control surface (started by ServeHTTP)
	a.httpServer = httpapi.NewServer(a.logger, a.engine, a.registry)

	return nil
}

func (a *Application) newRemotePlayer(cfg Config) (ports.RemotePlayer, error) {
	if cfg.RemotePlayer != nil {
		return cfg.RemotePlayer, nil
	}

	switch cfg.File.Player.Backend {
	case config.BackendMock:
		player := mock.NewAutoPlayer(mock.AutoConfig{ReadyDelay: demoReadyDelay})
		player.SetLogger(a.logger.With(slog.String("component", "mock")))
		return player, nil
	case config.BackendMPV:
		player := mpv.NewPlayer(a.logger, mpv.Config{Path: cfg.File.Player.MPVPath})
		if !player.Available() {
			return nil, fmt.Errorf("mpv binary %q not found; install mpv or set player.backend = \"mock\"", cfg.File.Player.MPVPath)
		}
		return player, nil
	default:
		return nil, domain.NewValidationError("player.backend", cfg.File.Player.Backend, "unknown backend")
	}
}

func (a *Application) newPreferencesRepository(storage config.StorageConfig) (ports.PreferencesRepository, error) {
	switch storage.Driver {
	case config.DriverMemory:
		return memory.NewPreferencesRepository(), nil
	case config.DriverSQLite:
		path := storage.Path
		if path == "" {
			var err error
			if path, err = sqlite.DefaultPath(); err != nil {
				return nil, fmt.Errorf("failed to resolve preferences path: %w", err)
			}
		}
		repo, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open preferences: %w", err)
		}
		a.logger.Debug("preferences database opened", slog.String("path", path))
		return repo, nil
	default:
		return nil, domain.NewValidationError("storage.driver", storage.Driver, "unknown driver")
	}
}

func preferenceDefaults(file *config.Config) (service.Preferences, error) {
	repeat, err := file.RepeatMode()
	if err != nil {
		return service.Preferences{}, err
	}
	return service.Preferences{
		Muted:   file.Playback.Muted,
		Shuffle: file.Playback.Shuffle,
		Repeat:  repeat,
	}, nil
}

// Queue resolves inputs (files, folders and URLs) into a playlist and starts
// its first track. With no inputs the configured library paths are used.
func (a *Application) Queue(ctx context.Context, inputs []string) ([]domain.Track, error) {
	if len(inputs) == 0 {
		inputs = a.config.Library.Paths
	}

	tracks, err := a.libraryService.Resolve(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, domain.ErrPlaylistEmpty
	}

	if err := a.engine.PlayTrack(ctx, tracks[0], tracks...); err != nil {
		return nil, err
	}
	return tracks, nil
}

// ServeHTTP runs the control surface on addr until ctx is cancelled.
func (a *Application) ServeHTTP(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.httpServer.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Engine returns the playback engine.
func (a *Application) Engine() *service.PlaybackEngine {
	return a.engine
}

// Library returns the library service.
func (a *Application) Library() *service.LibraryService {
	return a.libraryService
}

// Preferences returns the preference service.
func (a *Application) Preferences() *service.PreferenceService {
	return a.preferenceService
}

// EventBus returns the event bus.
func (a *Application) EventBus() ports.EventBus {
	return a.eventBus
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Registry returns the metrics registry.
func (a *Application) Registry() *prometheus.Registry {
	return a.registry
}

// HTTPServer returns the control surface.
func (a *Application) HTTPServer() *httpapi.Server {
	return a.httpServer
}

// Shutdown gracefully shuts down the application, in reverse order of
// creation. It is safe to call more than once.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown()
	})
	return a.shutdownErr
}

func (a *Application) shutdown() error {
	log := a.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log.Info("shutting down application")

	var firstErr error
	record := func(what string, err error) {
		if err == nil {
			return
		}
		log.Warn("failed to shutdown "+what, slog.Any("error", err))
		if firstErr == nil {
			firstErr = fmt.Errorf("shutdown %s: %w", what, err)
		}
	}

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		record("http server", a.httpServer.Shutdown(ctx))
		cancel()
	}

	// The engine goes first so its final events are still saved.
	if a.engine != nil {
		record("playback engine", a.engine.Close())
	}
	if a.preferenceService != nil {
		record("preference service", a.preferenceService.Shutdown())
	}
	if a.libraryService != nil {
		record("library service", a.libraryService.Shutdown())
	}
	if a.remote != nil {
		record("remote player", a.remote.Close())
	}
	if a.preferencesRepo != nil {
		record("preferences repository", a.preferencesRepo.Close())
	}
	if a.eventBus != nil {
		record("event bus", a.eventBus.Close())
	}

	log.Info("application shutdown complete")
	return firstErr
}
