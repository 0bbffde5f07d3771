package ports

import (
	"time"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// PlaybackObserver receives operational measurements from the playback engine.
// Implementations must be cheap and non-blocking; they are called on the engine loop.
type PlaybackObserver interface {
	// ObserveLoad is called for every player instance created.
	ObserveLoad()

	// ObserveReady is called when an instance becomes ready, with the time it took.
	ObserveReady(elapsed time.Duration)

	// ObserveStaleEvent is called when a callback from a superseded instance is dropped.
	ObserveStaleEvent(event string)

	// ObserveError is called for every playback error written to the session.
	ObserveError(kind domain.ErrorKind)

	// ObservePlaying is called whenever the session's playing flag is written.
	ObservePlaying(playing bool)
}
