// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrTrackNotFound is returned when a requested track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrInvalidPlayerHandle is returned when an unknown player handle is used.
	ErrInvalidPlayerHandle = errors.New("invalid player handle")

	// ErrPlaylistEmpty is returned when an operation requires a non-empty playlist.
	ErrPlaylistEmpty = errors.New("playlist is empty")

	// ErrDuplicateTrack is returned when a playlist would contain the same track ID twice.
	ErrDuplicateTrack = errors.New("track already exists in playlist")

	// ErrNoTrackLoaded is returned when playback is requested with no track selected.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrEngineClosed is returned by commands issued after the engine shut down.
	ErrEngineClosed = errors.New("playback engine closed")

	// ErrFileNotFound is returned when a file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFilePath is returned when a file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrScanCancelled is returned when a library scan is canceled.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrPreferenceNotSet is returned by a repository when a preference was never saved.
	ErrPreferenceNotSet = errors.New("preference not set")
)

// Sentinels matched by PlaybackError through errors.Is, one per ErrorKind.
var (
	ErrInvalidMediaReference = errors.New("invalid media reference")
	ErrPlaybackNotPermitted  = errors.New("playback not permitted")
	ErrTransport             = errors.New("player transport error")
	ErrInitializationFailed  = errors.New("player initialization failed")
)

// ErrorKind classifies playback failures.
type ErrorKind int

const (
	// KindInvalidMediaReference means the media reference is malformed or unknown.
	KindInvalidMediaReference ErrorKind = iota + 1

	// KindPlaybackNotPermitted means the provider refuses playback (e.g. embedding disabled).
	KindPlaybackNotPermitted

	// KindTransport means the player failed at runtime.
	KindTransport

	// KindInitializationFailed means the player instance could not be constructed.
	KindInitializationFailed
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidMediaReference:
		return "invalid_media_reference"
	case KindPlaybackNotPermitted:
		return "playback_not_permitted"
	case KindTransport:
		return "transport_error"
	case KindInitializationFailed:
		return "initialization_failed"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidMediaReference:
		return ErrInvalidMediaReference
	case KindPlaybackNotPermitted:
		return ErrPlaybackNotPermitted
	case KindInitializationFailed:
		return ErrInitializationFailed
	default:
		return ErrTransport
	}
}

// Error codes reported by remote players through OnError.
const (
	CodeInvalidParameter     = 2
	CodePlayerFailure        = 5
	CodeNotFound             = 100
	CodeEmbedNotAllowed      = 101
	CodeEmbedNotAllowedAlias = 150
)

// KindForCode maps a remote player error code to an ErrorKind.
func KindForCode(code int) ErrorKind {
	switch code {
	case CodeInvalidParameter, CodeNotFound:
		return KindInvalidMediaReference
	case CodeEmbedNotAllowed, CodeEmbedNotAllowedAlias:
		return KindPlaybackNotPermitted
	default:
		return KindTransport
	}
}

// MessageForCode returns a user-facing message for a remote player error code.
func MessageForCode(code int) string {
	switch code {
	case CodeInvalidParameter:
		return "Invalid media id"
	case CodePlayerFailure:
		return "Player error"
	case CodeNotFound:
		return "Media not found"
	case CodeEmbedNotAllowed, CodeEmbedNotAllowedAlias:
		return "Embedding not allowed"
	default:
		return fmt.Sprintf("Unknown player error (code %d)", code)
	}
}

// PlaybackError is the normalized failure written into the session.
// It is never returned from commands; callers read it from the snapshot.
type PlaybackError struct {
	Kind    ErrorKind
	Code    int    // Remote error code, 0 if none
	TrackID string // Track that failed
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("playback %s for track '%s': %s (code: %d)", e.Kind, e.TrackID, e.Message, e.Code)
	}
	return fmt.Sprintf("playback %s for track '%s': %s", e.Kind, e.TrackID, e.Message)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *PlaybackError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewPlaybackError creates a new PlaybackError.
func NewPlaybackError(kind ErrorKind, trackID, message string, err error) *PlaybackError {
	return &PlaybackError{
		Kind:    kind,
		TrackID: trackID,
		Message: message,
		Err:     err,
	}
}

// NewPlaybackErrorFromCode normalizes a remote error code into a PlaybackError.
func NewPlaybackErrorFromCode(code int, trackID string) *PlaybackError {
	return &PlaybackError{
		Kind:    KindForCode(code),
		Code:    code,
		TrackID: trackID,
		Message: MessageForCode(code),
	}
}

// RemotePlayerError represents an error from a remote player backend.
// This wraps low-level player errors with additional context.
type RemotePlayerError struct {
	Op      string       // Operation that failed (e.g., "create", "play", "seek")
	Handle  PlayerHandle // Instance handle (if applicable)
	Code    int          // Error code from the backend
	Message string       // Error message
	Err     error        // Underlying error (if any)
}

// Error implements the error interface.
func (e *RemotePlayerError) Error() string {
	if e.Handle != InvalidPlayerHandle {
		return fmt.Sprintf("remote player %s failed for instance %d: %s (code: %d)", e.Op, e.Handle, e.Message, e.Code)
	}
	return fmt.Sprintf("remote player %s failed: %s (code: %d)", e.Op, e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *RemotePlayerError) Unwrap() error {
	return e.Err
}

// NewRemotePlayerError creates a new RemotePlayerError.
func NewRemotePlayerError(op string, handle PlayerHandle, code int, message string, err error) *RemotePlayerError {
	return &RemotePlayerError{
		Op:      op,
		Handle:  handle,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "save", "load")
	Type    string // Repository type (e.g., "preferences")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "LibraryService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
