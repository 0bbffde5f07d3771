package service

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

type playerEventKind int

const (
	eventReady playerEventKind = iota
	eventStateChange
	eventError
)

func (k playerEventKind) String() string {
	switch k {
	case eventReady:
		return "ready"
	case eventStateChange:
		return "state_change"
	case eventError:
		return "error"
	default:
		return "unknown"
	}
}

// playerEvent is a remote callback tagged with the generation of the
// instance that produced it.
type playerEvent struct {
	gen   uint64
	kind  playerEventKind
	state domain.RemoteState
	code  int
}

// playerInstance is the single live remote instance.
type playerInstance struct {
	gen       uint64
	handle    domain.PlayerHandle
	track     domain.Track
	state     domain.AdapterState
	wantPlay  bool
	seekTo    *time.Duration
	createdAt time.Time

	// durationFromHint is set while the session duration is the track's
	// DurationHint rather than a value reported by the player.
	durationFromHint bool
}

// PlayerAdapter owns the live remote player instance and drives its state machine.
// Every remote callback is matched against the live instance's generation;
// anything else is stale and dropped.
//
// All methods run on the engine loop.
type PlayerAdapter struct {
	logger    *slog.Logger
	remote    ports.RemotePlayer
	session   *Session
	bus       ports.EventBus
	observer  ports.PlaybackObserver
	tracker   *TimeTracker
	container string

	post    func(playerEvent)
	onEnded func()

	gen  uint64
	inst *playerInstance
}

// NewPlayerAdapter creates an adapter with no instance.
// post delivers tagged callbacks to the engine loop; onEnded runs the
// end-of-track policy.
func NewPlayerAdapter(
	logger *slog.Logger,
	remote ports.RemotePlayer,
	session *Session,
	bus ports.EventBus,
	observer ports.PlaybackObserver,
	tracker *TimeTracker,
	container string,
	post func(playerEvent),
	onEnded func(),
) *PlayerAdapter {
	session.SetAdapterState(domain.AdapterUninitialized)
	return &PlayerAdapter{
		logger:    logger,
		remote:    remote,
		session:   session,
		bus:       bus,
		observer:  observer,
		tracker:   tracker,
		container: container,
		post:      post,
		onEnded:   onEnded,
	}
}

// State returns the lifecycle state of the live instance.
func (a *PlayerAdapter) State() domain.AdapterState {
	if a.inst == nil {
		return a.session.adapterState
	}
	return a.inst.state
}

// HasInstance reports whether an instance exists that can still be driven.
func (a *PlayerAdapter) HasInstance() bool {
	return a.inst != nil && a.inst.state != domain.AdapterErrored
}

// Holds reports whether the live instance serves track and can still be driven.
func (a *PlayerAdapter) Holds(track domain.Track) bool {
	return a.HasInstance() && a.inst.track.ID == track.ID && a.inst.track.MediaRef == track.MediaRef
}

// Load starts an instance for track. A repeated request for the track that is
// already initializing only refreshes the play intent.
func (a *PlayerAdapter) Load(track domain.Track, autoplay bool) {
	if a.inst != nil && a.inst.state == domain.AdapterInitializing &&
		a.inst.track.ID == track.ID && a.inst.track.MediaRef == track.MediaRef {
		a.inst.wantPlay = autoplay
		a.logger.Debug("load already in flight", slog.String("track_id", track.ID))
		return
	}

	a.Destroy()
	a.session.ClearError()
	a.setPlaying(false)

	a.gen++
	a.inst = &playerInstance{
		gen:       a.gen,
		handle:    domain.InvalidPlayerHandle,
		track:     track,
		wantPlay:  autoplay,
		createdAt: time.Now(),
	}

	if strings.TrimSpace(track.MediaRef) == "" {
		a.fail(domain.NewPlaybackError(domain.KindInvalidMediaReference, track.ID, "empty media reference", nil))
		return
	}

	a.observer.ObserveLoad()
	handle, err := a.remote.Create(a.container, track.MediaRef, ports.PlayerOptions{
		Muted: a.session.muted,
	}, a.callbacks(a.gen))
	if err != nil {
		a.fail(domain.NewPlaybackError(domain.KindInitializationFailed, track.ID, "could not create player", err))
		return
	}

	a.inst.handle = handle
	a.setState(domain.AdapterInitializing)
	a.logger.Debug("player initializing",
		slog.String("track_id", track.ID),
		slog.Uint64("generation", a.gen),
		slog.Int64("handle", int64(handle)))
}

// callbacks builds the remote callbacks for generation gen.
func (a *PlayerAdapter) callbacks(gen uint64) ports.PlayerCallbacks {
	return ports.PlayerCallbacks{
		OnReady: func() {
			a.post(playerEvent{gen: gen, kind: eventReady})
		},
		OnStateChange: func(state domain.RemoteState) {
			a.post(playerEvent{gen: gen, kind: eventStateChange, state: state})
		},
		OnError: func(code int) {
			a.post(playerEvent{gen: gen, kind: eventError, code: code})
		},
	}
}

// HandleEvent applies a remote callback, dropping stale ones.
func (a *PlayerAdapter) HandleEvent(ev playerEvent) {
	if a.inst == nil || ev.gen != a.inst.gen {
		a.logger.Debug("dropping stale player event",
			slog.String("event", ev.kind.String()),
			slog.Uint64("generation", ev.gen))
		a.observer.ObserveStaleEvent(ev.kind.String())
		return
	}

	switch ev.kind {
	case eventReady:
		a.handleReady()
	case eventStateChange:
		a.handleStateChange(ev.state)
	case eventError:
		a.fail(domain.NewPlaybackErrorFromCode(ev.code, a.inst.track.ID))
	}
}

// HandleTick samples the position for the tracker.
func (a *PlayerAdapter) HandleTick(tick trackerTick) {
	if a.inst == nil || tick.gen != a.inst.gen || a.inst.state != domain.AdapterPlaying {
		a.observer.ObserveStaleEvent("tick")
		return
	}

	pos, err := a.remote.CurrentTime(a.inst.handle)
	if err != nil {
		a.logger.Debug("failed to read position", slog.Any("error", err))
		return
	}
	if a.session.duration == 0 || a.inst.durationFromHint {
		a.captureDuration()
	}
	pos = a.session.SetPosition(pos)

	if a.bus.HasSubscribers(domain.EventTrackProgress) {
		a.bus.Publish(domain.NewTrackProgressEvent(pos, a.session.duration))
	}
}

func (a *PlayerAdapter) handleReady() {
	inst := a.inst
	if inst.state != domain.AdapterInitializing {
		a.logger.Debug("ignoring repeated ready", slog.String("state", inst.state.String()))
		return
	}

	a.setState(domain.AdapterReady)
	a.observer.ObserveReady(time.Since(inst.createdAt))
	a.captureDuration()

	a.applyMute()
	if inst.seekTo != nil {
		if err := a.remote.Seek(inst.handle, *inst.seekTo); err != nil {
			a.logger.Warn("failed to apply queued seek", slog.Any("error", err))
		}
		inst.seekTo = nil
	}

	a.bus.Publish(domain.NewPlayerReadyEvent(inst.track, a.session.duration))
	a.logger.Debug("player ready", slog.String("track_id", inst.track.ID))

	if inst.wantPlay {
		a.Play()
	}
}

func (a *PlayerAdapter) handleStateChange(state domain.RemoteState) {
	inst := a.inst
	switch state {
	case domain.RemotePlaying:
		switch inst.state {
		case domain.AdapterReady, domain.AdapterPaused, domain.AdapterBuffering, domain.AdapterEnded:
			a.enterPlaying()
		}
	case domain.RemotePaused:
		if inst.state == domain.AdapterPlaying || inst.state == domain.AdapterBuffering {
			a.enterPaused()
		}
	case domain.RemoteBuffering:
		if inst.state == domain.AdapterPlaying {
			a.tracker.Stop()
			a.setState(domain.AdapterBuffering)
			a.bus.Publish(domain.NewTrackBufferingEvent(inst.track))
		}
	case domain.RemoteEnded:
		if inst.state.IsLoaded() && inst.state != domain.AdapterEnded {
			a.enterEnded()
		}
	default:
		a.logger.Debug("ignoring remote state", slog.String("state", state.String()))
	}
}

// Play issues play once the instance is loaded; during initialization it
// only records the intent.
func (a *PlayerAdapter) Play() {
	if a.inst == nil {
		return
	}

	switch a.inst.state {
	case domain.AdapterInitializing:
		a.inst.wantPlay = true
	case domain.AdapterReady, domain.AdapterPaused, domain.AdapterEnded:
		if err := a.remote.Play(a.inst.handle); err != nil {
			a.failCommand("play", err)
			return
		}
		a.enterPlaying()
	}
}

// Resume plays the live instance, restarting an ended track from the beginning.
func (a *PlayerAdapter) Resume() {
	if a.inst != nil && a.inst.state == domain.AdapterEnded {
		a.Seek(0)
	}
	a.Play()
}

// Pause pauses a playing instance, or drops the play intent of an initializing one.
func (a *PlayerAdapter) Pause() {
	if a.inst == nil {
		return
	}

	switch a.inst.state {
	case domain.AdapterInitializing:
		a.inst.wantPlay = false
	case domain.AdapterPlaying, domain.AdapterBuffering:
		if err := a.remote.Pause(a.inst.handle); err != nil {
			a.failCommand("pause", err)
			return
		}
		a.samplePosition()
		a.enterPaused()
	}
}

// Seek writes the position into the session before the remote confirms it.
func (a *PlayerAdapter) Seek(pos time.Duration) {
	pos = a.session.SetPosition(pos)
	if a.inst == nil {
		return
	}

	switch {
	case a.inst.state == domain.AdapterInitializing:
		a.inst.seekTo = &pos
	case a.inst.state.IsLoaded():
		if err := a.remote.Seek(a.inst.handle, pos); err != nil {
			a.failCommand("seek", err)
		}
	}
}

// SetMuted records the mute intent and applies it to a loaded instance.
func (a *PlayerAdapter) SetMuted(muted bool) {
	a.session.SetMuted(muted)
	if a.inst != nil && a.inst.state.IsLoaded() {
		a.applyMute()
	}
}

// Destroy tears down the live instance. Safe in every state, including
// before any instance exists.
func (a *PlayerAdapter) Destroy() {
	a.tracker.Stop()
	if a.inst == nil {
		return
	}

	if a.inst.handle != domain.InvalidPlayerHandle {
		if err := a.remote.Destroy(a.inst.handle); err != nil {
			a.logger.Warn("failed to destroy player", slog.Any("error", err))
		}
	}
	a.logger.Debug("player destroyed",
		slog.String("track_id", a.inst.track.ID),
		slog.Uint64("generation", a.inst.gen))

	a.inst = nil
	a.session.SetAdapterState(domain.AdapterDestroyed)
	a.setPlaying(false)
}

func (a *PlayerAdapter) enterPlaying() {
	a.setState(domain.AdapterPlaying)
	a.setPlaying(true)
	a.tracker.Start(a.inst.gen)
	a.bus.Publish(domain.NewTrackStartedEvent(a.inst.track))
}

func (a *PlayerAdapter) enterPaused() {
	a.tracker.Stop()
	a.setState(domain.AdapterPaused)
	a.setPlaying(false)
	a.bus.Publish(domain.NewTrackPausedEvent(a.inst.track, a.session.currentTime))
}

func (a *PlayerAdapter) enterEnded() {
	a.tracker.Stop()
	if a.session.duration > 0 {
		a.session.SetPosition(a.session.duration)
	} else {
		a.samplePosition()
	}
	a.setState(domain.AdapterEnded)
	a.setPlaying(false)
	a.bus.Publish(domain.NewTrackEndedEvent(a.inst.track, a.session.currentIndex))

	if a.onEnded != nil {
		a.onEnded()
	}
}

// fail moves the instance to Errored and records err in the session.
func (a *PlayerAdapter) fail(err *domain.PlaybackError) {
	a.tracker.Stop()
	a.setState(domain.AdapterErrored)
	a.setPlaying(false)
	a.session.SetError(err)
	a.observer.ObserveError(err.Kind)
	a.bus.Publish(domain.NewTrackErrorEvent(a.inst.track, err))
	a.logger.Warn("playback error",
		slog.String("track_id", err.TrackID),
		slog.String("kind", err.Kind.String()),
		slog.Int("code", err.Code),
		slog.String("message", err.Message))
}

// failCommand normalizes a failed remote command.
func (a *PlayerAdapter) failCommand(op string, err error) {
	var rerr *domain.RemotePlayerError
	if errors.As(err, &rerr) && rerr.Code > 0 {
		perr := domain.NewPlaybackErrorFromCode(rerr.Code, a.inst.track.ID)
		perr.Err = err
		a.fail(perr)
		return
	}
	a.fail(domain.NewPlaybackError(domain.KindTransport, a.inst.track.ID, op+" failed", err))
}

// captureDuration reads the duration from the player. DurationHint stands in
// until the player reports a positive value.
func (a *PlayerAdapter) captureDuration() {
	if a.session.duration > 0 && !a.inst.durationFromHint {
		return
	}
	if d, err := a.remote.Duration(a.inst.handle); err == nil && d > 0 {
		a.inst.durationFromHint = false
		a.session.SetDuration(d)
		return
	}
	if a.session.duration == 0 && a.inst.track.DurationHint > 0 {
		a.inst.durationFromHint = true
		a.session.SetDuration(a.inst.track.DurationHint)
	}
}

func (a *PlayerAdapter) samplePosition() {
	if pos, err := a.remote.CurrentTime(a.inst.handle); err == nil {
		a.session.SetPosition(pos)
	}
}

func (a *PlayerAdapter) applyMute() {
	var err error
	if a.session.muted {
		err = a.remote.Mute(a.inst.handle)
	} else {
		err = a.remote.Unmute(a.inst.handle)
	}
	if err != nil {
		a.logger.Warn("failed to apply mute state", slog.Any("error", err))
	}
}

func (a *PlayerAdapter) setState(state domain.AdapterState) {
	a.inst.state = state
	a.session.SetAdapterState(state)
}

func (a *PlayerAdapter) setPlaying(playing bool) {
	a.session.SetPlaying(playing)
	a.observer.ObservePlaying(playing)
}
