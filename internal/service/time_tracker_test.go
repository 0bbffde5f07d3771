package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
)

type tickRecorder struct {
	mu    sync.Mutex
	ticks []trackerTick
}

func (r *tickRecorder) sink(_ context.Context, tick trackerTick) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, tick)
	return true
}

func (r *tickRecorder) count(gen uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, tick := range r.ticks {
		if tick.gen == gen {
			n++
		}
	}
	return n
}

func TestTimeTracker_TicksOnlyWhileRunning(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &tickRecorder{}
		tracker := NewTimeTracker(time.Second, rec.sink)

		tracker.Start(1)
		assert.True(t, tracker.Running())
		time.Sleep(3*time.Second + time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 3, rec.count(1))

		tracker.Stop()
		assert.False(t, tracker.Running())
		time.Sleep(5 * time.Second)
		synctest.Wait()
		assert.Equal(t, 3, rec.count(1))
	})
}

func TestTimeTracker_RestartSwitchesGeneration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &tickRecorder{}
		tracker := NewTimeTracker(time.Second, rec.sink)
		defer tracker.Stop()

		tracker.Start(1)
		time.Sleep(1500 * time.Millisecond)

		tracker.Start(1)
		time.Sleep(600 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 2, rec.count(1), "same generation keeps its sampler")

		tracker.Start(2)
		assert.Equal(t, uint64(2), tracker.Generation())
		time.Sleep(2*time.Second + time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 2, rec.count(1))
		assert.Equal(t, 2, rec.count(2))
	})
}

func TestTimeTracker_SinkRefusalEndsSampler(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var calls atomic.Int32
		tracker := NewTimeTracker(time.Second, func(context.Context, trackerTick) bool {
			calls.Add(1)
			return false
		})

		tracker.Start(7)
		time.Sleep(5 * time.Second)
		synctest.Wait()
		assert.EqualValues(t, 1, calls.Load())

		tracker.Stop()
	})
}

func TestTimeTracker_DefaultInterval(t *testing.T) {
	tracker := NewTimeTracker(0, func(context.Context, trackerTick) bool { return true })
	assert.Equal(t, DefaultPollInterval, tracker.interval)

	tracker.Stop()
	assert.False(t, tracker.Running())
}
