// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// PreferencesRepository handles the persistence of playback preferences.
// Saved playlists are out of scope; only the session modes survive restarts.
//
// Thread-safety: Implementations must be thread-safe.
type PreferencesRepository interface {
	// SaveMuted persists the mute state.
	SaveMuted(muted bool) error

	// LoadMuted retrieves the saved mute state.
	// Returns domain.ErrPreferenceNotSet if nothing was saved.
	LoadMuted() (bool, error)

	// SaveShuffle persists the shuffle flag.
	SaveShuffle(enabled bool) error

	// LoadShuffle retrieves the saved shuffle flag.
	// Returns domain.ErrPreferenceNotSet if nothing was saved.
	LoadShuffle() (bool, error)

	// SaveRepeatMode persists the repeat mode.
	SaveRepeatMode(mode domain.RepeatMode) error

	// LoadRepeatMode retrieves the saved repeat mode.
	// Returns domain.ErrPreferenceNotSet if nothing was saved.
	LoadRepeatMode() (domain.RepeatMode, error)

	// Clear removes all saved preferences.
	Clear() error

	// Close releases the underlying storage.
	Close() error
}
