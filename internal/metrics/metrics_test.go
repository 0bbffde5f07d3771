package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunequeue/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunequeue/internal/adapter/player/mock"
	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/logger"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
	"github.com/tejashwikalptaru/tunequeue/internal/service"
)

var _ ports.PlaybackObserver = (*Metrics)(nil)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLoad()
	m.ObserveLoad()
	m.ObserveStaleEvent("ready")
	m.ObserveError(domain.KindPlaybackNotPermitted)
	m.ObservePlaying(true)
	m.ObserveReady(300 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrackLoadsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleEventsTotal.WithLabelValues("ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlaybackErrorsTotal.WithLabelValues("playback_not_permitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Playing))

	m.ObservePlaying(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Playing))
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveLoad()

	expected := `
# HELP tunequeue_track_loads_total Total number of player instances created
# TYPE tunequeue_track_loads_total counter
tunequeue_track_loads_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tunequeue_track_loads_total"))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestMetrics_ObservesEngine(t *testing.T) {
	m := New(prometheus.NewRegistry())
	bus := eventbus.NewSyncEventBus()
	defer bus.Close()
	remote := mock.NewPlayer()
	defer remote.Close()

	engine := service.NewPlaybackEngine(logger.NewTestLogger(), remote, bus, nil, m, service.EngineConfig{PollInterval: time.Hour})
	defer engine.Close()

	ctx := context.Background()
	a := domain.Track{ID: "a", Title: "A", MediaRef: "media-a"}
	b := domain.Track{ID: "b", Title: "B", MediaRef: "media-b"}
	require.NoError(t, engine.PlayTrack(ctx, a, a, b))
	first := remote.LastHandle()
	require.NoError(t, engine.PlayTrack(ctx, b, a, b))

	require.NoError(t, remote.SimulateReady(first))
	require.NoError(t, remote.SimulateReady(remote.LastHandle()))
	_, err := engine.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrackLoadsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleEventsTotal.WithLabelValues("ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Playing))
}
