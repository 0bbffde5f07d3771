package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunequeue/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunequeue/internal/adapter/player/mock"
	"github.com/tejashwikalptaru/tunequeue/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/logger"
)

// failingPreferencesRepository fails every call with a storage error.
type failingPreferencesRepository struct{}

var errStorage = errors.New("disk on fire")

func (failingPreferencesRepository) SaveMuted(bool) error { return errStorage }
func (failingPreferencesRepository) LoadMuted() (bool, error) { return false, errStorage }
func (failingPreferencesRepository) SaveShuffle(bool) error { return errStorage }
func (failingPreferencesRepository) LoadShuffle() (bool, error) { return false, errStorage }
func (failingPreferencesRepository) SaveRepeatMode(domain.RepeatMode) error { return errStorage }
func (failingPreferencesRepository) LoadRepeatMode() (domain.RepeatMode, error) {
	return domain.RepeatOff, errStorage
}
func (failingPreferencesRepository) Clear() error { return errStorage }
func (failingPreferencesRepository) Close() error { return nil }

// Helper to create a test preference service
func newTestPreferenceService(t *testing.T, defaults Preferences) (*PreferenceService, *memory.PreferencesRepository, *eventbus.SyncEventBus) {
	t.Helper()
	repo := memory.NewPreferencesRepository()
	bus := eventbus.NewSyncEventBus()
	service := NewPreferenceService(logger.NewTestLogger(), repo, bus, defaults)
	t.Cleanup(func() {
		_ = service.Shutdown()
		_ = bus.Close()
	})
	return service, repo, bus
}

func TestPreferenceService_DefaultsWhenNothingSaved(t *testing.T) {
	defaults := Preferences{Muted: true, Repeat: domain.RepeatAll}
	service, _, _ := newTestPreferenceService(t, defaults)

	assert.Equal(t, defaults, service.Get())
}

func TestPreferenceService_SavedValuesWin(t *testing.T) {
	repo := memory.NewPreferencesRepository()
	require.NoError(t, repo.SaveShuffle(true))
	require.NoError(t, repo.SaveRepeatMode(domain.RepeatOne))
	bus := eventbus.NewSyncEventBus()
	defer bus.Close()

	service := NewPreferenceService(logger.NewTestLogger(), repo, bus, Preferences{Muted: true})
	defer service.Shutdown()

	assert.Equal(t, Preferences{Muted: true, Shuffle: true, Repeat: domain.RepeatOne}, service.Get())
}

func TestPreferenceService_LoadErrorsFallBackToDefaults(t *testing.T) {
	bus := eventbus.NewSyncEventBus()
	defer bus.Close()

	defaults := Preferences{Shuffle: true}
	service := NewPreferenceService(logger.NewTestLogger(), failingPreferencesRepository{}, bus, defaults)
	defer service.Shutdown()

	assert.Equal(t, defaults, service.Get())

	// Save failures are logged, not propagated.
	assert.NotPanics(t, func() { bus.Publish(domain.NewMuteToggledEvent(true)) })
	assert.True(t, service.Get().Muted)
}

func TestPreferenceService_SavesOnEvents(t *testing.T) {
	service, repo, bus := newTestPreferenceService(t, Preferences{})

	bus.Publish(domain.NewMuteToggledEvent(true))
	bus.Publish(domain.NewModeChangedEvent(true, domain.RepeatAll))

	muted, err := repo.LoadMuted()
	require.NoError(t, err)
	assert.True(t, muted)

	shuffle, err := repo.LoadShuffle()
	require.NoError(t, err)
	assert.True(t, shuffle)

	mode, err := repo.LoadRepeatMode()
	require.NoError(t, err)
	assert.Equal(t, domain.RepeatAll, mode)

	assert.Equal(t, Preferences{Muted: true, Shuffle: true, Repeat: domain.RepeatAll}, service.Get())
}

func TestPreferenceService_ShutdownStopsSaving(t *testing.T) {
	service, repo, bus := newTestPreferenceService(t, Preferences{})
	require.NoError(t, service.Shutdown())

	bus.Publish(domain.NewMuteToggledEvent(true))

	_, err := repo.LoadMuted()
	assert.ErrorIs(t, err, domain.ErrPreferenceNotSet)
}

func TestPreferenceService_ApplyAndPersistThroughEngine(t *testing.T) {
	repo := memory.NewPreferencesRepository()
	require.NoError(t, repo.SaveRepeatMode(domain.RepeatOne))
	bus := eventbus.NewSyncEventBus()
	defer bus.Close()
	service := NewPreferenceService(logger.NewTestLogger(), repo, bus, Preferences{Muted: true})
	defer service.Shutdown()

	remote := mock.NewPlayer()
	defer remote.Close()
	engine := NewPlaybackEngine(logger.NewTestLogger(), remote, bus, nil, nil, EngineConfig{PollInterval: time.Hour})
	defer engine.Close()

	ctx := context.Background()
	require.NoError(t, service.Apply(ctx, engine))

	snap, err := engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Muted)
	assert.False(t, snap.Shuffle)
	assert.Equal(t, domain.RepeatOne, snap.Repeat)

	// A user change flows back to storage.
	require.NoError(t, engine.ToggleShuffle(ctx))
	shuffle, err := repo.LoadShuffle()
	require.NoError(t, err)
	assert.True(t, shuffle)
}

func TestPreferenceService_ApplyDoesNotSaveOverrides(t *testing.T) {
	service, repo, bus := newTestPreferenceService(t, Preferences{})
	service.Override(Preferences{Shuffle: true, Repeat: domain.RepeatAll})

	remote := mock.NewPlayer()
	defer remote.Close()
	engine := NewPlaybackEngine(logger.NewTestLogger(), remote, bus, nil, nil, EngineConfig{PollInterval: time.Hour})
	defer engine.Close()

	require.NoError(t, service.Apply(context.Background(), engine))

	_, err := repo.LoadShuffle()
	assert.ErrorIs(t, err, domain.ErrPreferenceNotSet)
	assert.Equal(t, Preferences{Shuffle: true, Repeat: domain.RepeatAll}, service.Get())
}

func TestPreferenceService_ApplyOnClosedEngine(t *testing.T) {
	service, _, bus := newTestPreferenceService(t, Preferences{})

	remote := mock.NewPlayer()
	defer remote.Close()
	engine := NewPlaybackEngine(logger.NewTestLogger(), remote, bus, nil, nil, EngineConfig{})
	require.NoError(t, engine.Close())

	err := service.Apply(context.Background(), engine)
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.ErrorIs(t, err, domain.ErrEngineClosed)
}

func TestPreferenceService_OverrideAndReset(t *testing.T) {
	service, repo, _ := newTestPreferenceService(t, Preferences{})
	require.NoError(t, repo.SaveMuted(true))

	service.Override(Preferences{Shuffle: true})
	assert.Equal(t, Preferences{Shuffle: true}, service.Get())

	require.NoError(t, service.ResetToDefaults(Preferences{Repeat: domain.RepeatAll}))
	assert.Equal(t, Preferences{Repeat: domain.RepeatAll}, service.Get())
	_, err := repo.LoadMuted()
	assert.ErrorIs(t, err, domain.ErrPreferenceNotSet)
}
