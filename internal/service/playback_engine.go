// Package service provides the playback engine and the services around it.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
	"github.com/tejashwikalptaru/tunequeue/internal/queue"
)

// DefaultInboxSize is the buffer of the engine's message channel.
const DefaultInboxSize = 64

// EngineConfig configures a PlaybackEngine.
type EngineConfig struct {
	// Container is passed to RemotePlayer.Create for every instance.
	Container string

	// PollInterval is the position sampling interval while playing.
	PollInterval time.Duration

	// InboxSize is the buffer of the message channel.
	InboxSize int
}

// command runs a closure on the engine loop.
type command struct {
	run  func()
	done chan struct{}
}

// PlaybackEngine serializes playback commands, remote callbacks and tracker
// ticks through a single loop goroutine. The loop owns the session, the player
// adapter and the remote instance; nothing else touches them.
//
// Thread-safety: every exported method is safe for concurrent use.
// Events are published on the loop goroutine, so handlers must not call
// engine commands synchronously.
type PlaybackEngine struct {
	logger   *slog.Logger
	bus      ports.EventBus
	selector *queue.Selector
	observer ports.PlaybackObserver

	// Owned by the loop goroutine.
	session *Session
	adapter *PlayerAdapter
	tracker *TimeTracker
	stopped bool

	inbox     chan any
	done      chan struct{}
	loopWg    sync.WaitGroup
	closeOnce sync.Once
}

// NewPlaybackEngine creates an engine and starts its loop.
// A nil observer disables measurements.
func NewPlaybackEngine(
	logger *slog.Logger,
	remote ports.RemotePlayer,
	bus ports.EventBus,
	selector *queue.Selector,
	observer ports.PlaybackObserver,
	cfg EngineConfig,
) *PlaybackEngine {
	if observer == nil {
		observer = nopObserver{}
	}
	if selector == nil {
		selector = queue.NewSelector(nil)
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}

	e := &PlaybackEngine{
		logger:   logger.With(slog.String("service", "playback")),
		bus:      bus,
		selector: selector,
		observer: observer,
		session:  NewSession(),
		inbox:    make(chan any, cfg.InboxSize),
		done:     make(chan struct{}),
	}
	e.tracker = NewTimeTracker(cfg.PollInterval, e.deliverTick)
	e.adapter = NewPlayerAdapter(
		e.logger, remote, e.session, bus, observer, e.tracker, cfg.Container,
		func(ev playerEvent) { e.post(ev) },
		e.handleEnded,
	)

	e.loopWg.Add(1)
	go e.loop()

	e.logger.Debug("playback engine started", slog.Duration("poll_interval", e.tracker.interval))
	return e
}

func (e *PlaybackEngine) loop() {
	defer e.loopWg.Done()

	for {
		select {
		case <-e.done:
			return
		case msg := <-e.inbox:
			e.dispatch(msg)
		}
	}
}

func (e *PlaybackEngine) dispatch(msg any) {
	switch m := msg.(type) {
	case command:
		if e.stopped {
			return
		}
		m.run()
		close(m.done)
	case playerEvent:
		if e.stopped {
			return
		}
		e.adapter.HandleEvent(m)
	case trackerTick:
		if e.stopped {
			return
		}
		e.adapter.HandleTick(m)
	default:
		e.logger.Error("unknown engine message", slog.String("type", fmt.Sprintf("%T", msg)))
	}
}

// post delivers a remote callback. It is dropped once the engine is closed.
func (e *PlaybackEngine) post(msg any) {
	select {
	case e.inbox <- msg:
	case <-e.done:
	}
}

func (e *PlaybackEngine) deliverTick(ctx context.Context, tick trackerTick) bool {
	select {
	case e.inbox <- tick:
		return true
	case <-ctx.Done():
		return false
	case <-e.done:
		return false
	}
}

// exec runs fn on the loop and waits for it.
func (e *PlaybackEngine) exec(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := command{run: fn, done: make(chan struct{})}

	select {
	case e.inbox <- cmd:
	case <-e.done:
		return domain.ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-e.done:
		return domain.ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the loop and returns its error.
func (e *PlaybackEngine) call(ctx context.Context, fn func() error) error {
	var err error
	if execErr := e.exec(ctx, func() { err = fn() }); execErr != nil {
		return execErr
	}
	return err
}

// PlayTrack loads track with autoplay. With a list, the list replaces the
// playlist and must contain the track. Without one, the track is selected
// when already queued and appended otherwise.
func (e *PlaybackEngine) PlayTrack(ctx context.Context, track domain.Track, list ...domain.Track) error {
	return e.call(ctx, func() error {
		index, err := e.enqueue(track, list)
		if err != nil {
			return err
		}
		e.logger.Info("playing track",
			slog.String("track_id", track.ID),
			slog.String("title", track.Title),
			slog.Int("index", index))
		e.loadIndex(index)
		return nil
	})
}

func (e *PlaybackEngine) enqueue(track domain.Track, list []domain.Track) (int, error) {
	if len(list) > 0 {
		playlist, err := domain.NewPlaylist(list...)
		if err != nil {
			return -1, err
		}
		index := playlist.IndexOf(track.ID)
		if index < 0 {
			return -1, fmt.Errorf("%w: %s", domain.ErrTrackNotFound, track.ID)
		}
		e.session.SetPlaylist(playlist)
		e.bus.Publish(domain.NewPlaylistUpdatedEvent(playlist, e.session.currentIndex))
		return index, nil
	}

	if index := e.session.playlist.IndexOf(track.ID); index >= 0 {
		return index, nil
	}
	playlist, err := e.session.playlist.Append(track)
	if err != nil {
		return -1, err
	}
	e.session.SetPlaylist(playlist)
	e.bus.Publish(domain.NewPlaylistUpdatedEvent(playlist, e.session.currentIndex))
	return playlist.Len() - 1, nil
}

// Pause pauses playback. Pausing with nothing loaded is a no-op.
func (e *PlaybackEngine) Pause(ctx context.Context) error {
	return e.exec(ctx, func() {
		e.adapter.Pause()
	})
}

// Resume continues playback. An ended track restarts from the beginning; a
// selected track without a usable instance is loaded again.
func (e *PlaybackEngine) Resume(ctx context.Context) error {
	return e.call(ctx, func() error {
		if e.session.currentIndex < 0 {
			return domain.ErrNoTrackLoaded
		}

		if !e.adapter.HasInstance() {
			e.loadIndex(e.session.currentIndex)
			return nil
		}
		e.adapter.Resume()
		return nil
	})
}

// Next moves to the selector's next track. When there is none, playback stops
// on the current track.
func (e *PlaybackEngine) Next(ctx context.Context) error {
	return e.exec(ctx, func() {
		e.advance(e.selector.Next(queue.CursorOf(e.session.Snapshot())).Get())
	})
}

// Previous moves to the selector's previous track. When there is none,
// playback stops on the current track.
func (e *PlaybackEngine) Previous(ctx context.Context) error {
	return e.exec(ctx, func() {
		e.advance(e.selector.Previous(queue.CursorOf(e.session.Snapshot())).Get())
	})
}

func (e *PlaybackEngine) advance(index int, ok bool) {
	if ok {
		e.loadIndex(index)
		return
	}
	e.adapter.Pause()
	e.publishStopped()
}

// Seek moves the playback position, clamped to the track.
func (e *PlaybackEngine) Seek(ctx context.Context, pos time.Duration) error {
	return e.call(ctx, func() error {
		if e.session.currentIndex < 0 {
			return domain.ErrNoTrackLoaded
		}
		e.adapter.Seek(pos)
		return nil
	})
}

// ToggleShuffle flips shuffle mode.
func (e *PlaybackEngine) ToggleShuffle(ctx context.Context) error {
	return e.exec(ctx, func() {
		e.setModes(!e.session.shuffle, e.session.repeat)
	})
}

// SetShuffle sets shuffle mode.
func (e *PlaybackEngine) SetShuffle(ctx context.Context, enabled bool) error {
	return e.exec(ctx, func() {
		e.setModes(enabled, e.session.repeat)
	})
}

// CycleRepeat moves the repeat mode to the next one (off, all, one).
func (e *PlaybackEngine) CycleRepeat(ctx context.Context) error {
	return e.exec(ctx, func() {
		e.setModes(e.session.shuffle, e.session.repeat.Next())
	})
}

// SetRepeat sets the repeat mode.
func (e *PlaybackEngine) SetRepeat(ctx context.Context, mode domain.RepeatMode) error {
	return e.exec(ctx, func() {
		e.setModes(e.session.shuffle, mode)
	})
}

func (e *PlaybackEngine) setModes(shuffle bool, repeat domain.RepeatMode) {
	e.session.SetShuffle(shuffle)
	e.session.SetRepeat(repeat)
	e.logger.Debug("modes changed", slog.Bool("shuffle", shuffle), slog.String("repeat", repeat.String()))
	e.bus.Publish(domain.NewModeChangedEvent(shuffle, repeat))
}

// SetMuted sets the mute state, applying it to the live instance if any.
func (e *PlaybackEngine) SetMuted(ctx context.Context, muted bool) error {
	return e.exec(ctx, func() {
		e.adapter.SetMuted(muted)
		e.bus.Publish(domain.NewMuteToggledEvent(muted))
	})
}

// Stop destroys the live instance and clears the selection.
// The playlist and modes are kept.
func (e *PlaybackEngine) Stop(ctx context.Context) error {
	return e.exec(ctx, func() {
		track, hadTrack := e.session.CurrentTrack()
		e.adapter.Destroy()
		e.session.ClearSelection()
		if hadTrack {
			e.bus.Publish(domain.NewPlaybackStoppedEvent(track, 0))
		}
	})
}

// Snapshot returns a copy of the playback session.
func (e *PlaybackEngine) Snapshot(ctx context.Context) (domain.PlaybackSession, error) {
	var snap domain.PlaybackSession
	if err := e.exec(ctx, func() { snap = e.session.Snapshot() }); err != nil {
		return domain.PlaybackSession{}, err
	}
	return snap, nil
}

// Close destroys the live instance and stops the loop. It is idempotent.
func (e *PlaybackEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.exec(context.Background(), func() {
			e.adapter.Destroy()
			e.stopped = true
		})
		close(e.done)
		e.loopWg.Wait()
		e.logger.Debug("playback engine closed")
	})
	return err
}

// loadIndex selects index and starts loading it with autoplay. When the live
// instance already serves that track it is resumed in place, keeping its
// position.
func (e *PlaybackEngine) loadIndex(index int) {
	track, ok := e.session.playlist.At(index)
	if !ok {
		return
	}
	if e.adapter.Holds(track) {
		e.session.Reselect(index)
		e.adapter.Resume()
		return
	}

	e.session.Select(index)
	e.bus.Publish(domain.NewTrackRequestedEvent(track, index))
	e.adapter.Load(track, true)
}

// handleEnded runs when the live instance finishes its track.
func (e *PlaybackEngine) handleEnded() {
	if e.session.repeat == domain.RepeatOne {
		e.logger.Debug("repeating track", slog.Int("index", e.session.currentIndex))
		e.adapter.Seek(0)
		e.adapter.Play()
		return
	}

	if index, ok := e.selector.Next(queue.CursorOf(e.session.Snapshot())).Get(); ok {
		e.loadIndex(index)
		return
	}

	e.logger.Info("reached end of playlist")
	e.publishStopped()
}

func (e *PlaybackEngine) publishStopped() {
	track, ok := e.session.CurrentTrack()
	if !ok {
		return
	}
	e.bus.Publish(domain.NewPlaybackStoppedEvent(track, e.session.currentTime))
}

type nopObserver struct{}

func (nopObserver) ObserveLoad() {}
func (nopObserver) ObserveReady(time.Duration) {}
func (nopObserver) ObserveStaleEvent(string) {}
func (nopObserver) ObserveError(domain.ErrorKind) {}
func (nopObserver) ObservePlaying(bool) {}

var _ ports.PlaybackObserver = nopObserver{}
