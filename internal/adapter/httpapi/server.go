// Package httpapi exposes the playback engine over a small JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

const (
	readHeaderTimeout = 5 * time.Second
	maxBodyBytes      = 1 << 20
)

// Controller is the engine surface driven by the API.
type Controller interface {
	PlayTrack(ctx context.Context, track domain.Track, list ...domain.Track) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, pos time.Duration) error
	ToggleShuffle(ctx context.Context) error
	SetShuffle(ctx context.Context, enabled bool) error
	CycleRepeat(ctx context.Context) error
	SetRepeat(ctx context.Context, mode domain.RepeatMode) error
	SetMuted(ctx context.Context, muted bool) error
	Stop(ctx context.Context) error
	Snapshot(ctx context.Context) (domain.PlaybackSession, error)
}

// Server serves the control API.
type Server struct {
	logger   *slog.Logger
	engine   Controller
	gatherer prometheus.Gatherer
	router   *mux.Router
	started  time.Time

	srv    *http.Server
	closed bool
	mu     sync.Mutex
}

// NewServer builds the router. A nil gatherer disables /metrics.
func NewServer(logger *slog.Logger, engine Controller, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		logger:   logger.With(slog.String("component", "httpapi")),
		engine:   engine,
		gatherer: gatherer,
		started:  time.Now(),
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", s.session).Methods(http.MethodGet)
	api.HandleFunc("/play", s.play).Methods(http.MethodPost)
	api.HandleFunc("/pause", s.command(s.engine.Pause)).Methods(http.MethodPost)
	api.HandleFunc("/resume", s.command(s.engine.Resume)).Methods(http.MethodPost)
	api.HandleFunc("/next", s.command(s.engine.Next)).Methods(http.MethodPost)
	api.HandleFunc("/previous", s.command(s.engine.Previous)).Methods(http.MethodPost)
	api.HandleFunc("/stop", s.command(s.engine.Stop)).Methods(http.MethodPost)
	api.HandleFunc("/shuffle", s.shuffle).Methods(http.MethodPost)
	api.HandleFunc("/repeat", s.repeat).Methods(http.MethodPost)
	api.HandleFunc("/seek", s.seek).Methods(http.MethodPost)
	api.HandleFunc("/mute", s.mute).Methods(http.MethodPost)

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ln.Close()
	}
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	srv := s.srv
	s.mu.Unlock()

	s.logger.Info("http control surface listening", slog.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully. A server shut down before Serve
// never starts.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}
