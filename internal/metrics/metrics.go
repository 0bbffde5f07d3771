// Package metrics exposes Prometheus metrics for the playback engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// Metrics records engine activity. It implements ports.PlaybackObserver.
type Metrics struct {
	TrackLoadsTotal     prometheus.Counter
	StaleEventsTotal    *prometheus.CounterVec
	PlaybackErrorsTotal *prometheus.CounterVec
	Playing             prometheus.Gauge
	PlayerReadySeconds  prometheus.Histogram
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TrackLoadsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tunequeue_track_loads_total",
				Help: "Total number of player instances created",
			},
		),
		StaleEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunequeue_stale_events_total",
				Help: "Total number of callbacks dropped because their instance was superseded",
			},
			[]string{"event"},
		),
		PlaybackErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunequeue_playback_errors_total",
				Help: "Total number of playback errors by kind",
			},
			[]string{"kind"},
		),
		Playing: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tunequeue_playing",
				Help: "Whether a track is currently playing (1) or not (0)",
			},
		),
		PlayerReadySeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tunequeue_player_ready_seconds",
				Help:    "Time from instance creation to ready in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
	}
}

// ObserveLoad counts a created instance.
func (m *Metrics) ObserveLoad() {
	m.TrackLoadsTotal.Inc()
}

// ObserveReady records how long an instance took to become ready.
func (m *Metrics) ObserveReady(elapsed time.Duration) {
	m.PlayerReadySeconds.Observe(elapsed.Seconds())
}

// ObserveStaleEvent counts a dropped callback.
func (m *Metrics) ObserveStaleEvent(event string) {
	m.StaleEventsTotal.WithLabelValues(event).Inc()
}

// ObserveError counts a playback error.
func (m *Metrics) ObserveError(kind domain.ErrorKind) {
	m.PlaybackErrorsTotal.WithLabelValues(kind.String()).Inc()
}

// ObservePlaying sets the playing gauge.
func (m *Metrics) ObservePlaying(playing bool) {
	if playing {
		m.Playing.Set(1)
		return
	}
	m.Playing.Set(0)
}
