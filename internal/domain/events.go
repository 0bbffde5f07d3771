// Package domain defines events for the event-driven architecture.
// Events let collaborators observe the playback session without polling it.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventTrackRequested  EventType = "track.requested"
	EventPlayerReady     EventType = "player.ready"
	EventTrackStarted    EventType = "track.started"
	EventTrackPaused     EventType = "track.paused"
	EventTrackBuffering  EventType = "track.buffering"
	EventTrackEnded      EventType = "track.ended"
	EventTrackProgress   EventType = "track.progress"
	EventTrackError      EventType = "track.error"
	EventPlaybackStopped EventType = "playback.stopped"

	// Mode events
	EventMuteToggled EventType = "mute.toggled"
	EventModeChanged EventType = "mode.changed"

	// Queue events
	EventPlaylistUpdated EventType = "playlist.updated"

	// Library scanning events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
	EventScanCancelled EventType = "scan.cancelled"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackRequestedEvent is published when a track load is requested.
type TrackRequestedEvent struct {
	baseEvent
	Track Track
	Index int
}

// Type returns the event type.
func (e TrackRequestedEvent) Type() EventType {
	return EventTrackRequested
}

// NewTrackRequestedEvent creates a new TrackRequestedEvent.
func NewTrackRequestedEvent(track Track, index int) TrackRequestedEvent {
	return TrackRequestedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Index:     index,
	}
}

// PlayerReadyEvent is published when the player instance for a track becomes ready.
type PlayerReadyEvent struct {
	baseEvent
	Track    Track
	Duration time.Duration
}

// Type returns the event type.
func (e PlayerReadyEvent) Type() EventType {
	return EventPlayerReady
}

// NewPlayerReadyEvent creates a new PlayerReadyEvent.
func NewPlayerReadyEvent(track Track, duration time.Duration) PlayerReadyEvent {
	return PlayerReadyEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Duration:  duration,
	}
}

// TrackStartedEvent is published when playback starts or resumes.
type TrackStartedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(track Track) TrackStartedEvent {
	return TrackStartedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(track Track, position time.Duration) TrackPausedEvent {
	return TrackPausedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Position:  position,
	}
}

// TrackBufferingEvent is published when the player stalls while playing.
type TrackBufferingEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackBufferingEvent) Type() EventType {
	return EventTrackBuffering
}

// NewTrackBufferingEvent creates a new TrackBufferingEvent.
func NewTrackBufferingEvent(track Track) TrackBufferingEvent {
	return TrackBufferingEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackEndedEvent is published when a track plays to its end.
type TrackEndedEvent struct {
	baseEvent
	Track Track
	Index int
}

// Type returns the event type.
func (e TrackEndedEvent) Type() EventType {
	return EventTrackEnded
}

// NewTrackEndedEvent creates a new TrackEndedEvent.
func NewTrackEndedEvent(track Track, index int) TrackEndedEvent {
	return TrackEndedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Index:     index,
	}
}

// TrackProgressEvent is published periodically during playback.
type TrackProgressEvent struct {
	baseEvent
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e TrackProgressEvent) Type() EventType {
	return EventTrackProgress
}

// NewTrackProgressEvent creates a new TrackProgressEvent.
func NewTrackProgressEvent(position, duration time.Duration) TrackProgressEvent {
	return TrackProgressEvent{
		baseEvent: newBaseEvent(),
		Position:  position,
		Duration:  duration,
	}
}

// TrackErrorEvent is published when the player reports a failure.
type TrackErrorEvent struct {
	baseEvent
	Track Track
	Error *PlaybackError
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType {
	return EventTrackError
}

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(track Track, err *PlaybackError) TrackErrorEvent {
	return TrackErrorEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Error:     err,
	}
}

// PlaybackStoppedEvent is published when the queue runs out or playback is stopped.
// Track is the last track, kept for display.
type PlaybackStoppedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e PlaybackStoppedEvent) Type() EventType {
	return EventPlaybackStopped
}

// NewPlaybackStoppedEvent creates a new PlaybackStoppedEvent.
func NewPlaybackStoppedEvent(track Track, position time.Duration) PlaybackStoppedEvent {
	return PlaybackStoppedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Position:  position,
	}
}

// MuteToggledEvent is published when the mute state changes.
type MuteToggledEvent struct {
	baseEvent
	Muted bool
}

// Type returns the event type.
func (e MuteToggledEvent) Type() EventType {
	return EventMuteToggled
}

// NewMuteToggledEvent creates a new MuteToggledEvent.
func NewMuteToggledEvent(muted bool) MuteToggledEvent {
	return MuteToggledEvent{
		baseEvent: newBaseEvent(),
		Muted:     muted,
	}
}

// ModeChangedEvent is published when shuffle or repeat changes.
type ModeChangedEvent struct {
	baseEvent
	Shuffle bool
	Repeat  RepeatMode
}

// Type returns the event type.
func (e ModeChangedEvent) Type() EventType {
	return EventModeChanged
}

// NewModeChangedEvent creates a new ModeChangedEvent.
func NewModeChangedEvent(shuffle bool, repeat RepeatMode) ModeChangedEvent {
	return ModeChangedEvent{
		baseEvent: newBaseEvent(),
		Shuffle:   shuffle,
		Repeat:    repeat,
	}
}

// PlaylistUpdatedEvent is published when the play queue is replaced or extended.
type PlaylistUpdatedEvent struct {
	baseEvent
	Tracks []Track
	Index  int
}

// Type returns the event type.
func (e PlaylistUpdatedEvent) Type() EventType {
	return EventPlaylistUpdated
}

// NewPlaylistUpdatedEvent creates a new PlaylistUpdatedEvent.
func NewPlaylistUpdatedEvent(playlist Playlist, index int) PlaylistUpdatedEvent {
	return PlaylistUpdatedEvent{
		baseEvent: newBaseEvent(),
		Tracks:    playlist.Tracks(),
		Index:     index,
	}
}

// ScanProgress reports the state of a running library scan.
type ScanProgress struct {
	CurrentFile string
	Processed   int
	Total       int
}

// ScanStartedEvent is published when a library scan begins.
type ScanStartedEvent struct {
	baseEvent
	Path string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(path string) ScanStartedEvent {
	return ScanStartedEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
	}
}

// ScanProgressEvent is published for every file processed during a scan.
type ScanProgressEvent struct {
	baseEvent
	Progress ScanProgress
}

// Type returns the event type.
func (e ScanProgressEvent) Type() EventType {
	return EventScanProgress
}

// NewScanProgressEvent creates a new ScanProgressEvent.
func NewScanProgressEvent(progress ScanProgress) ScanProgressEvent {
	return ScanProgressEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// ScanCompletedEvent is published when a scan finishes.
type ScanCompletedEvent struct {
	baseEvent
	Tracks []Track
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(tracks []Track) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent: newBaseEvent(),
		Tracks:    tracks,
	}
}

// ScanCancelledEvent is published when a scan is canceled.
type ScanCancelledEvent struct {
	baseEvent
	Reason string
}

// Type returns the event type.
func (e ScanCancelledEvent) Type() EventType {
	return EventScanCancelled
}

// NewScanCancelledEvent creates a new ScanCancelledEvent.
func NewScanCancelledEvent(reason string) ScanCancelledEvent {
	return ScanCancelledEvent{
		baseEvent: newBaseEvent(),
		Reason:    reason,
	}
}
