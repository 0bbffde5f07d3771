// Package memory provides in-process implementations of the repository ports.
package memory

import (
	"sync"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

const (
	keyMuted   = "preferences.muted"
	keyShuffle = "preferences.shuffle"
	keyRepeat  = "preferences.repeat"
)

// PreferencesRepository implements ports.PreferencesRepository with a map.
// Nothing survives the process; it backs the memory storage driver and tests.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PreferencesRepository struct {
	values map[string]any
	closed bool
	mu     sync.RWMutex
}

// NewPreferencesRepository creates an empty preferences repository.
func NewPreferencesRepository() *PreferencesRepository {
	return &PreferencesRepository{
		values: make(map[string]any),
	}
}

func (r *PreferencesRepository) set(op, key string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.NewRepositoryError(op, "memory", "repository closed", nil)
	}
	r.values[key] = value
	return nil
}

func (r *PreferencesRepository) get(op, key string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, domain.NewRepositoryError(op, "memory", "repository closed", nil)
	}
	v, ok := r.values[key]
	if !ok {
		return nil, domain.ErrPreferenceNotSet
	}
	return v, nil
}

// SaveMuted persists the mute state.
func (r *PreferencesRepository) SaveMuted(muted bool) error {
	return r.set("SaveMuted", keyMuted, muted)
}

// LoadMuted retrieves the saved mute state.
func (r *PreferencesRepository) LoadMuted() (bool, error) {
	v, err := r.get("LoadMuted", keyMuted)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// SaveShuffle persists the shuffle flag.
func (r *PreferencesRepository) SaveShuffle(enabled bool) error {
	return r.set("SaveShuffle", keyShuffle, enabled)
}

// LoadShuffle retrieves the saved shuffle flag.
func (r *PreferencesRepository) LoadShuffle() (bool, error) {
	v, err := r.get("LoadShuffle", keyShuffle)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// SaveRepeatMode persists the repeat mode.
func (r *PreferencesRepository) SaveRepeatMode(mode domain.RepeatMode) error {
	return r.set("SaveRepeatMode", keyRepeat, mode)
}

// LoadRepeatMode retrieves the saved repeat mode.
func (r *PreferencesRepository) LoadRepeatMode() (domain.RepeatMode, error) {
	v, err := r.get("LoadRepeatMode", keyRepeat)
	if err != nil {
		return domain.RepeatOff, err
	}
	return v.(domain.RepeatMode), nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.values)
	return nil
}

// Close marks the repository closed; later calls fail.
func (r *PreferencesRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	return nil
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
