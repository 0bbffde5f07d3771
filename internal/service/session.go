package service

import (
	"time"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// Session is the single source of truth for playback state.
// It is owned by the engine loop and only changes through the methods below,
// each of which keeps the session invariants.
//
// Not safe for concurrent use; readers get copies through Snapshot.
type Session struct {
	playlist     domain.Playlist
	currentIndex int
	isPlaying    bool
	shuffle      bool
	repeat       domain.RepeatMode
	currentTime  time.Duration
	duration     time.Duration
	muted        bool
	adapterState domain.AdapterState
	err          *domain.PlaybackError
}

// NewSession creates an empty session with nothing selected.
func NewSession() *Session {
	return &Session{currentIndex: -1}
}

// Snapshot returns a copy of the session.
func (s *Session) Snapshot() domain.PlaybackSession {
	return domain.PlaybackSession{
		Playlist:     s.playlist,
		CurrentIndex: s.currentIndex,
		IsPlaying:    s.isPlaying,
		Shuffle:      s.shuffle,
		Repeat:       s.repeat,
		CurrentTime:  s.currentTime,
		Duration:     s.duration,
		Muted:        s.muted,
		AdapterState: s.adapterState,
		Err:          s.err,
	}
}

// CurrentTrack returns the selected track, if any.
func (s *Session) CurrentTrack() (domain.Track, bool) {
	return s.playlist.At(s.currentIndex)
}

// SetPlaylist replaces the queue. The selection is kept when its track is
// still present, otherwise it is cleared.
func (s *Session) SetPlaylist(p domain.Playlist) {
	var keep = -1
	if cur, ok := s.CurrentTrack(); ok {
		keep = p.IndexOf(cur.ID)
	}
	s.playlist = p
	if keep < 0 {
		s.ClearSelection()
		return
	}
	s.currentIndex = keep
}

// Select makes index the current track and resets per-track state.
// Playback is forced off until the new instance reports ready.
func (s *Session) Select(index int) bool {
	if _, ok := s.playlist.At(index); !ok {
		return false
	}
	s.currentIndex = index
	s.currentTime = 0
	s.duration = 0
	s.isPlaying = false
	s.err = nil
	return true
}

// Reselect moves the selection to index without resetting per-track state.
// It is used when the live instance already serves the track at index.
func (s *Session) Reselect(index int) bool {
	if _, ok := s.playlist.At(index); !ok {
		return false
	}
	s.currentIndex = index
	return true
}

// ClearSelection deselects the current track, keeping the playlist.
func (s *Session) ClearSelection() {
	s.currentIndex = -1
	s.currentTime = 0
	s.duration = 0
	s.isPlaying = false
}

// SetPlaying writes the playing flag.
func (s *Session) SetPlaying(playing bool) {
	s.isPlaying = playing
}

// SetPosition writes the playback position clamped to [0, duration] and
// returns the value stored.
func (s *Session) SetPosition(pos time.Duration) time.Duration {
	s.currentTime = clampPosition(pos, s.duration)
	return s.currentTime
}

// SetDuration records the track duration and re-clamps the position.
func (s *Session) SetDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.duration = d
	s.currentTime = clampPosition(s.currentTime, d)
}

// SetError records a playback error.
func (s *Session) SetError(err *domain.PlaybackError) {
	s.err = err
}

// ClearError forgets the last playback error.
func (s *Session) ClearError() {
	s.err = nil
}

// SetShuffle writes the shuffle flag.
func (s *Session) SetShuffle(enabled bool) {
	s.shuffle = enabled
}

// SetRepeat writes the repeat mode.
func (s *Session) SetRepeat(mode domain.RepeatMode) {
	s.repeat = mode
}

// SetMuted writes the mute flag.
func (s *Session) SetMuted(muted bool) {
	s.muted = muted
}

// SetAdapterState mirrors the live instance's lifecycle state.
func (s *Session) SetAdapterState(state domain.AdapterState) {
	s.adapterState = state
}

// clampPosition limits pos to [0, duration]; an unknown (zero) duration only
// clamps the lower bound.
func clampPosition(pos, duration time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if duration > 0 && pos > duration {
		return duration
	}
	return pos
}
