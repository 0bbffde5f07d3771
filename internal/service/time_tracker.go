package service

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often the position is sampled while playing.
const DefaultPollInterval = time.Second

// trackerTick asks the engine loop to sample the position of instance gen.
type trackerTick struct {
	gen uint64
}

// tickSink delivers a tick to the engine loop. It returns false when the tick
// could not be delivered because ctx ended or the engine shut down.
type tickSink func(ctx context.Context, tick trackerTick) bool

// TimeTracker is a cancelable periodic sampler.
// Each Start acquires one sampler goroutine; Stop releases it and waits for
// it to exit, so no tick for an old generation is produced after Stop returns.
//
// Not safe for concurrent use; the engine loop owns it.
type TimeTracker struct {
	interval time.Duration
	sink     tickSink

	cancel context.CancelFunc
	wg     sync.WaitGroup
	gen    uint64
}

// NewTimeTracker creates a stopped tracker.
func NewTimeTracker(interval time.Duration, sink tickSink) *TimeTracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &TimeTracker{interval: interval, sink: sink}
}

// Start begins sampling for generation gen. Restarting for the same
// generation keeps the running sampler.
func (t *TimeTracker) Start(gen uint64) {
	if t.cancel != nil && t.gen == gen {
		return
	}
	t.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.gen = gen

	t.wg.Add(1)
	go t.run(ctx, gen)
}

// Stop cancels the sampler and waits for it. Stopping a stopped tracker is a no-op.
func (t *TimeTracker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
	t.wg.Wait()
}

// Running reports whether a sampler is active.
func (t *TimeTracker) Running() bool {
	return t.cancel != nil
}

// Generation returns the generation of the active sampler.
func (t *TimeTracker) Generation() uint64 {
	return t.gen
}

func (t *TimeTracker) run(ctx context.Context, gen uint64) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.sink(ctx, trackerTick{gen: gen}) {
				return
			}
		}
	}
}
