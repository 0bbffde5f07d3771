// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the TuneQueue playback engine.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Track describes one playable item.
// Tracks are values: once created they are never mutated.
type Track struct {
	// ID identifies the track within a playlist
	ID string

	// Title is the song title
	Title string

	// Artist is the performing artist name
	Artist string

	// ArtworkRef points at cover art (URL or file path)
	ArtworkRef string

	// DurationHint is the length reported by the catalog, if any.
	// The remote player's own duration wins once it is ready.
	DurationHint time.Duration

	// MediaRef is the identifier the remote player needs to load this track
	// (video id, URL or file path)
	MediaRef string
}

// Playlist is an ordered, immutable sequence of tracks.
// Track IDs are unique within one playlist so that index lookups are unambiguous.
type Playlist struct {
	tracks []Track
}

// NewPlaylist creates a playlist from the given tracks.
// Returns ErrDuplicateTrack if two tracks share an ID.
func NewPlaylist(tracks ...Track) (Playlist, error) {
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t.ID]; ok {
			return Playlist{}, fmt.Errorf("%w: %s", ErrDuplicateTrack, t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	cp := make([]Track, len(tracks))
	copy(cp, tracks)
	return Playlist{tracks: cp}, nil
}

// Len returns the number of tracks.
func (p Playlist) Len() int {
	return len(p.tracks)
}

// IsEmpty reports whether the playlist has no tracks.
func (p Playlist) IsEmpty() bool {
	return len(p.tracks) == 0
}

// At returns the track at index i.
func (p Playlist) At(i int) (Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return Track{}, false
	}
	return p.tracks[i], true
}

// IndexOf returns the position of the track with the given ID, or -1.
func (p Playlist) IndexOf(id string) int {
	for i, t := range p.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Tracks returns a copy of the tracks.
func (p Playlist) Tracks() []Track {
	cp := make([]Track, len(p.tracks))
	copy(cp, p.tracks)
	return cp
}

// Append returns a new playlist with the track added at the end.
func (p Playlist) Append(t Track) (Playlist, error) {
	if p.IndexOf(t.ID) >= 0 {
		return p, fmt.Errorf("%w: %s", ErrDuplicateTrack, t.ID)
	}
	cp := make([]Track, len(p.tracks), len(p.tracks)+1)
	copy(cp, p.tracks)
	return Playlist{tracks: append(cp, t)}, nil
}

// RepeatMode controls what happens when a track or the playlist ends.
type RepeatMode int

const (
	// RepeatOff stops at the end of the playlist.
	RepeatOff RepeatMode = iota

	// RepeatAll wraps to the start (or end) of the playlist.
	RepeatAll

	// RepeatOne loops the current track.
	RepeatOne
)

// String returns a string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Next returns the mode that follows m in the off → all → one cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode parses "off", "all" or "one" (case-insensitive).
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatOff, NewValidationError("repeat", s, "must be one of off, all, one")
	}
}

// AdapterState is the lifecycle state of the live player instance.
type AdapterState int

const (
	// AdapterUninitialized means no instance has been requested yet.
	AdapterUninitialized AdapterState = iota

	// AdapterInitializing means an instance was created and its ready callback is pending.
	AdapterInitializing

	// AdapterReady means the instance loaded its media and awaits commands.
	AdapterReady

	// AdapterPlaying means the instance is playing.
	AdapterPlaying

	// AdapterPaused means the instance is paused.
	AdapterPaused

	// AdapterBuffering means the instance stalled while playing.
	AdapterBuffering

	// AdapterEnded means the instance reached the end of its media.
	AdapterEnded

	// AdapterErrored means the instance reported a failure.
	AdapterErrored

	// AdapterDestroyed means the instance was torn down.
	AdapterDestroyed
)

// String returns a string representation of the adapter state.
func (s AdapterState) String() string {
	switch s {
	case AdapterUninitialized:
		return "uninitialized"
	case AdapterInitializing:
		return "initializing"
	case AdapterReady:
		return "ready"
	case AdapterPlaying:
		return "playing"
	case AdapterPaused:
		return "paused"
	case AdapterBuffering:
		return "buffering"
	case AdapterEnded:
		return "ended"
	case AdapterErrored:
		return "errored"
	case AdapterDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// IsLoaded reports whether the instance has passed its ready callback and
// still accepts transport commands.
func (s AdapterState) IsLoaded() bool {
	switch s {
	case AdapterReady, AdapterPlaying, AdapterPaused, AdapterBuffering, AdapterEnded:
		return true
	default:
		return false
	}
}

// RemoteState is the playback state reported by the remote player.
type RemoteState int

const (
	RemoteUnstarted RemoteState = iota
	RemoteEnded
	RemotePlaying
	RemotePaused
	RemoteBuffering
	RemoteCued
)

// String returns a string representation of the remote state.
func (s RemoteState) String() string {
	switch s {
	case RemoteUnstarted:
		return "unstarted"
	case RemoteEnded:
		return "ended"
	case RemotePlaying:
		return "playing"
	case RemotePaused:
		return "paused"
	case RemoteBuffering:
		return "buffering"
	case RemoteCued:
		return "cued"
	default:
		return "unknown"
	}
}

// PlayerHandle identifies an instance created by a remote player.
type PlayerHandle int64

// InvalidPlayerHandle represents an invalid or unset handle.
const InvalidPlayerHandle PlayerHandle = 0

// PlaybackSession is a read-only snapshot of the playback session.
type PlaybackSession struct {
	// Playlist is the current play queue
	Playlist Playlist

	// CurrentIndex is the selected track, -1 if none
	CurrentIndex int

	// IsPlaying is true only while the live instance is ready (or later) and playing
	IsPlaying bool

	// Shuffle enables random order
	Shuffle bool

	// Repeat is the repeat mode
	Repeat RepeatMode

	// CurrentTime is the playback position
	CurrentTime time.Duration

	// Duration is the length of the current track, 0 while unknown
	Duration time.Duration

	// Muted is the requested mute state
	Muted bool

	// AdapterState is the lifecycle state of the live player instance
	AdapterState AdapterState

	// Err is the last playback error, nil if none
	Err *PlaybackError
}

// CurrentTrack returns the selected track, if any.
func (s PlaybackSession) CurrentTrack() (Track, bool) {
	return s.Playlist.At(s.CurrentIndex)
}

// Progress returns the playback position as a fraction of the duration.
func (s PlaybackSession) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.CurrentTime) / float64(s.Duration)
}
