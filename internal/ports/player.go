// Package ports define interfaces for dependency inversion.
// These interfaces allow the core playback logic to remain independent of concrete players.
package ports

import (
	"time"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// PlayerOptions configures a new remote player instance.
type PlayerOptions struct {
	// Autoplay asks the backend to start playing as soon as it is ready.
	// The engine keeps this false and issues Play itself once ready.
	Autoplay bool

	// Muted starts the instance muted.
	Muted bool

	// StartAt is the initial position.
	StartAt time.Duration
}

// PlayerCallbacks receives asynchronous notifications from one player instance.
//
// Backends must invoke callbacks from their own goroutines, never synchronously
// from inside a RemotePlayer method call.
type PlayerCallbacks struct {
	// OnReady fires once when the instance has loaded its media.
	OnReady func()

	// OnStateChange fires when the backend reports a new playback state.
	OnStateChange func(state domain.RemoteState)

	// OnError fires when the backend fails; code follows the domain.Code* constants.
	OnError func(code int)
}

// RemotePlayer is the externally-supplied media player service.
// It loads, buffers and reports state on its own schedule.
//
// The playback engine is the sole caller: it owns the single live instance and
// routes every command through its event loop.
//
// Thread-safety: Implementations must be thread-safe since callbacks are fired
// from backend goroutines while commands arrive from the engine loop.
type RemotePlayer interface {
	// Create starts a new instance for mediaRef inside container.
	// The handle is returned immediately; completion is reported through
	// callbacks.OnReady or callbacks.OnError.
	//
	// Returns an error if the instance cannot be constructed at all.
	Create(container, mediaRef string, opts PlayerOptions, callbacks PlayerCallbacks) (domain.PlayerHandle, error)

	// Destroy releases the instance. Callbacks may still be in flight afterward.
	// Destroying an unknown handle is a no-op.
	Destroy(handle domain.PlayerHandle) error

	// Play starts or resumes playback.
	Play(handle domain.PlayerHandle) error

	// Pause pauses playback, keeping the position.
	Pause(handle domain.PlayerHandle) error

	// Seek moves to an absolute position.
	Seek(handle domain.PlayerHandle, position time.Duration) error

	// Mute silences the instance.
	Mute(handle domain.PlayerHandle) error

	// Unmute restores sound.
	Unmute(handle domain.PlayerHandle) error

	// CurrentTime returns the playback position.
	CurrentTime(handle domain.PlayerHandle) (time.Duration, error)

	// Duration returns the media length, 0 if unknown.
	Duration(handle domain.PlayerHandle) (time.Duration, error)

	// Close releases every instance and backend resource.
	Close() error
}
