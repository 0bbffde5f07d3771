package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenNoFiles(t *testing.T) {
	cfg, err := loadFiles([]string{filepath.Join(t.TempDir(), "missing.toml")})
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)

	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, interval)
}

func TestLoad_LastFileWins(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.toml", `
[player]
backend = "mock"

[playback]
shuffle = true
repeat = "all"
`)
	local := writeFile(t, dir, "local.toml", `
[playback]
repeat = "one"
poll_interval = "1s"

[storage]
driver = "MEMORY"
`)

	cfg, err := loadFiles([]string{user, local})
	require.NoError(t, err)

	assert.Equal(t, BackendMock, cfg.Player.Backend)
	assert.Equal(t, "mpv", cfg.Player.MPVPath, "untouched keys keep defaults")
	assert.True(t, cfg.Playback.Shuffle)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)

	mode, err := cfg.RepeatMode()
	require.NoError(t, err)
	assert.Equal(t, domain.RepeatOne, mode)

	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Second, interval)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	path := writeFile(t, t.TempDir(), "c.toml", `
[storage]
path = "~/prefs.db"

[library]
paths = ["~/Music", "/srv/music"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "prefs.db"), cfg.Storage.Path)
	assert.Equal(t, []string{filepath.Join(home, "Music"), "/srv/music"}, cfg.Library.Paths)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"backend", "[player]\nbackend = \"vlc\"\n", "player.backend"},
		{"driver", "[storage]\ndriver = \"postgres\"\n", "storage.driver"},
		{"interval", "[playback]\npoll_interval = \"soon\"\n", "playback.poll_interval"},
		{"negative interval", "[playback]\npoll_interval = \"-1s\"\n", "playback.poll_interval"},
		{"repeat", "[playback]\nrepeat = \"forever\"\n", "playback.repeat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "c.toml", tt.content)
			_, err := Load(path)

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.toml", "[player\nbackend = ")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Log, cfg.Log)
	assert.Equal(t, def.Player, cfg.Player)
	assert.Equal(t, def.Playback, cfg.Playback)
	assert.Equal(t, def.Storage, cfg.Storage)
	assert.Equal(t, def.HTTP, cfg.HTTP)
	assert.Empty(t, cfg.Library.Paths)

	assert.Error(t, WriteDefault(path), "existing files are not overwritten")
}
