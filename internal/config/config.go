// Package config loads TuneQueue's TOML configuration.
//
// Files are layered, last wins: the XDG config file
// ($XDG_CONFIG_HOME/tunequeue/config.toml) and then ./config.toml.
// Keys missing from every file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tomlenc "github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

const (
	appName        = "tunequeue"
	configFileName = "config.toml"
)

// Player backends.
const (
	BackendMock = "mock"
	BackendMPV  = "mpv"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" toml:"log"`
	Player   PlayerConfig   `koanf:"player" toml:"player"`
	Playback PlaybackConfig `koanf:"playback" toml:"playback"`
	Storage  StorageConfig  `koanf:"storage" toml:"storage"`
	HTTP     HTTPConfig     `koanf:"http" toml:"http"`
	Library  LibraryConfig  `koanf:"library" toml:"library"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `koanf:"level" toml:"level"`   // debug, info, warn, error
	Format string `koanf:"format" toml:"format"` // text, json, logfmt
}

// PlayerConfig selects the remote player backend.
type PlayerConfig struct {
	Backend   string `koanf:"backend" toml:"backend"`     // mock or mpv
	MPVPath   string `koanf:"mpv_path" toml:"mpv_path"`   // mpv binary
	Container string `koanf:"container" toml:"container"` // host element handed to the backend
}

// PlaybackConfig holds the session defaults used until the user changes them.
type PlaybackConfig struct {
	PollInterval string `koanf:"poll_interval" toml:"poll_interval"` // e.g. "250ms"
	Shuffle      bool   `koanf:"shuffle" toml:"shuffle"`
	Repeat       string `koanf:"repeat" toml:"repeat"` // off, all, one
	Muted        bool   `koanf:"muted" toml:"muted"`
}

// StorageConfig selects where preferences are saved.
type StorageConfig struct {
	Driver string `koanf:"driver" toml:"driver"` // memory or sqlite
	Path   string `koanf:"path" toml:"path"`     // empty means the XDG data dir
}

// HTTPConfig configures the control surface. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `koanf:"addr" toml:"addr"`
}

// LibraryConfig lists folders queued when play is run without arguments.
type LibraryConfig struct {
	Paths []string `koanf:"paths" toml:"paths"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Player: PlayerConfig{
			Backend:   BackendMPV,
			MPVPath:   "mpv",
			Container: "tunequeue",
		},
		Playback: PlaybackConfig{
			PollInterval: "250ms",
			Repeat:       domain.RepeatOff.String(),
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
		},
		Library: LibraryConfig{
			Paths: []string{},
		},
	}
}

// Load reads the layered config files. When explicit is set only that file
// is read, and it must exist.
func Load(explicit string) (*Config, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file %s: %w", explicit, err)
		}
		return loadFiles([]string{explicit})
	}
	return loadFiles(searchPaths())
}

func loadFiles(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func searchPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, appName, configFileName),
		configFileName,
	}
}

// DefaultPath is where `config init` writes. The parent directory is created.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appName, configFileName))
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Player.Backend = strings.ToLower(strings.TrimSpace(c.Player.Backend))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Storage.Path = expandPath(c.Storage.Path)
	for i, p := range c.Library.Paths {
		c.Library.Paths[i] = expandPath(p)
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Player.Backend {
	case BackendMock, BackendMPV:
	default:
		return domain.NewValidationError("player.backend", c.Player.Backend, "must be mock or mpv")
	}

	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	default:
		return domain.NewValidationError("storage.driver", c.Storage.Driver, "must be memory or sqlite")
	}

	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if _, err := c.RepeatMode(); err != nil {
		return domain.NewValidationError("playback.repeat", c.Playback.Repeat, "must be off, all or one")
	}
	return nil
}

// PollInterval parses playback.poll_interval.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Playback.PollInterval)
	if err != nil || d <= 0 {
		return 0, domain.NewValidationError("playback.poll_interval", c.Playback.PollInterval, "must be a positive duration")
	}
	return d, nil
}

// RepeatMode parses playback.repeat.
func (c *Config) RepeatMode() (domain.RepeatMode, error) {
	return domain.ParseRepeatMode(c.Playback.Repeat)
}

// WriteDefault writes the default configuration to path, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := tomlenc.NewEncoder(f).Encode(Default()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
