package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// TrackRequest is a track as sent by clients. A missing ID is generated.
type TrackRequest struct {
	ID              string  `json:"id,omitempty"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist,omitempty"`
	ArtworkRef      string  `json:"artwork_ref,omitempty"`
	MediaRef        string  `json:"media_ref"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// PlayRequest replaces the queue with Tracks and starts the track with ID,
// or the one at Index when ID is empty.
type PlayRequest struct {
	Tracks []TrackRequest `json:"tracks"`
	Index  int            `json:"index"`
	ID     string         `json:"id,omitempty"`
}

// TrackResponse is a track in API responses.
type TrackResponse struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist,omitempty"`
	ArtworkRef      string  `json:"artwork_ref,omitempty"`
	MediaRef        string  `json:"media_ref"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// ErrorResponse describes a failure, either of a request or of playback.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Code  int    `json:"code,omitempty"`
}

// SessionResponse is the playback session snapshot.
type SessionResponse struct {
	Tracks          []TrackResponse `json:"tracks"`
	CurrentIndex    int             `json:"current_index"`
	Current         *TrackResponse  `json:"current,omitempty"`
	IsPlaying       bool            `json:"is_playing"`
	Shuffle         bool            `json:"shuffle"`
	Repeat          string          `json:"repeat"`
	Muted           bool            `json:"muted"`
	State           string          `json:"state"`
	PositionSeconds float64         `json:"position_seconds"`
	DurationSeconds float64         `json:"duration_seconds"`
	Progress        float64         `json:"progress"`
	Error           *ErrorResponse  `json:"error,omitempty"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := HealthResponse{
		Status:       "healthy",
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if _, err := s.engine.Snapshot(r.Context()); err != nil {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	s.writeSession(r.Context(), w)
}

// command adapts an argument-free engine command into a handler that
// answers with the resulting session.
func (s *Server) command(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeSession(r.Context(), w)
	}
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.Tracks) == 0 {
		s.writeError(w, domain.NewValidationError("tracks", nil, "at least one track is required"))
		return
	}

	tracks := make([]domain.Track, len(req.Tracks))
	for i, t := range req.Tracks {
		tracks[i] = t.toDomain()
	}

	start, err := pickTrack(tracks, req.ID, req.Index)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.engine.PlayTrack(r.Context(), start, tracks...); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(r.Context(), w)
}

func pickTrack(tracks []domain.Track, id string, index int) (domain.Track, error) {
	if id != "" {
		for _, t := range tracks {
			if t.ID == id {
				return t, nil
			}
		}
		return domain.Track{}, fmt.Errorf("%w: %s", domain.ErrTrackNotFound, id)
	}
	if index < 0 || index >= len(tracks) {
		return domain.Track{}, domain.NewValidationError("index", index, "out of range")
	}
	return tracks[index], nil
}

func (s *Server) shuffle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeOptionalBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var err error
	if req.Enabled == nil {
		err = s.engine.ToggleShuffle(r.Context())
	} else {
		err = s.engine.SetShuffle(r.Context(), *req.Enabled)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(r.Context(), w)
}

func (s *Server) repeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode *string `json:"mode"`
	}
	if err := decodeOptionalBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var err error
	if req.Mode == nil {
		err = s.engine.CycleRepeat(r.Context())
	} else {
		var mode domain.RepeatMode
		if mode, err = domain.ParseRepeatMode(*req.Mode); err == nil {
			err = s.engine.SetRepeat(r.Context(), mode)
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(r.Context(), w)
}

func (s *Server) seek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds *float64 `json:"seconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Seconds == nil {
		s.writeError(w, domain.NewValidationError("seconds", nil, "is required"))
		return
	}

	pos := durationFromSeconds(*req.Seconds)
	if err := s.engine.Seek(r.Context(), pos); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(r.Context(), w)
}

func (s *Server) mute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Muted *bool `json:"muted"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Muted == nil {
		s.writeError(w, domain.NewValidationError("muted", nil, "is required"))
		return
	}

	if err := s.engine.SetMuted(r.Context(), *req.Muted); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(r.Context(), w)
}

func (s *Server) writeSession(ctx context.Context, w http.ResponseWriter) {
	snap, err := s.engine.Snapshot(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(snap))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusFor maps engine and validation errors onto HTTP status codes.
func statusFor(err error) int {
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr), errors.Is(err, domain.ErrDuplicateTrack):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoTrackLoaded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEngineClosed), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errEmptyBody = errors.New("request body is required")

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func decodeBody(r *http.Request, v any) error {
	if err := readJSON(r, v); err != nil {
		return domain.NewValidationError("body", nil, err.Error())
	}
	return nil
}

// decodeOptionalBody accepts an empty body, leaving v untouched.
func decodeOptionalBody(r *http.Request, v any) error {
	err := readJSON(r, v)
	if err == nil || errors.Is(err, errEmptyBody) {
		return nil
	}
	return domain.NewValidationError("body", nil, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (t TrackRequest) toDomain() domain.Track {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	return domain.Track{
		ID:           id,
		Title:        t.Title,
		Artist:       t.Artist,
		ArtworkRef:   t.ArtworkRef,
		MediaRef:     t.MediaRef,
		DurationHint: max(durationFromSeconds(t.DurationSeconds), 0),
	}
}

// maxDurationSeconds is the largest whole number of seconds a time.Duration holds.
const maxDurationSeconds = float64(math.MaxInt64 / int64(time.Second))

// durationFromSeconds converts seconds, saturating at the time.Duration range
// so out-of-range values clamp instead of wrapping around.
func durationFromSeconds(secs float64) time.Duration {
	switch {
	case secs >= maxDurationSeconds:
		return time.Duration(math.MaxInt64)
	case secs <= -maxDurationSeconds:
		return time.Duration(math.MinInt64)
	default:
		return time.Duration(secs * float64(time.Second))
	}
}

func newTrackResponse(t domain.Track) TrackResponse {
	return TrackResponse{
		ID:              t.ID,
		Title:           t.Title,
		Artist:          t.Artist,
		ArtworkRef:      t.ArtworkRef,
		MediaRef:        t.MediaRef,
		DurationSeconds: t.DurationHint.Seconds(),
	}
}

func newSessionResponse(snap domain.PlaybackSession) SessionResponse {
	resp := SessionResponse{
		Tracks:          make([]TrackResponse, 0, snap.Playlist.Len()),
		CurrentIndex:    snap.CurrentIndex,
		IsPlaying:       snap.IsPlaying,
		Shuffle:         snap.Shuffle,
		Repeat:          snap.Repeat.String(),
		Muted:           snap.Muted,
		State:           snap.AdapterState.String(),
		PositionSeconds: snap.CurrentTime.Seconds(),
		DurationSeconds: snap.Duration.Seconds(),
		Progress:        snap.Progress(),
	}

	for _, t := range snap.Playlist.Tracks() {
		resp.Tracks = append(resp.Tracks, newTrackResponse(t))
	}
	if current, ok := snap.CurrentTrack(); ok {
		tr := newTrackResponse(current)
		resp.Current = &tr
	}
	if snap.Err != nil {
		resp.Error = &ErrorResponse{
			Error: snap.Err.Message,
			Kind:  snap.Err.Kind.String(),
			Code:  snap.Err.Code,
		}
	}
	return resp
}
