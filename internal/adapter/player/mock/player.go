// Package mock provides a scripted implementation of the RemotePlayer interface.
// Tests drive it by hand through the Simulate* methods; the demo backend runs it
// in auto mode, where a clock goroutine per instance fires ready and ended.
package mock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

// DefaultDuration is the media length reported for every instance unless overridden.
const DefaultDuration = 3 * time.Minute

// Call records one command received by the player.
type Call struct {
	Op       string
	Handle   domain.PlayerHandle
	Position time.Duration
}

// AutoConfig drives an instance on its own.
type AutoConfig struct {
	// ReadyDelay is the time between Create and OnReady.
	ReadyDelay time.Duration

	// Tick is how often the simulated position advances while playing.
	Tick time.Duration
}

// Player is a scripted implementation of the RemotePlayer interface.
// It never plays audio; it records commands and fires callbacks on demand.
//
// Thread-safety: This implementation is thread-safe.
type Player struct {
	logger *slog.Logger

	instances  map[domain.PlayerHandle]*instance
	nextHandle domain.PlayerHandle
	calls      []Call
	duration   time.Duration
	durations  map[string]time.Duration
	mu         sync.RWMutex

	// Behavior configuration (for testing error scenarios)
	failCreate bool
	failPlay   bool

	auto   *AutoConfig
	autoWg sync.WaitGroup
	closed bool
}

// instance represents one created player instance.
type instance struct {
	handle    domain.PlayerHandle
	mediaRef  string
	opts      ports.PlayerOptions
	callbacks ports.PlayerCallbacks
	duration  time.Duration
	position  time.Duration
	playing   bool
	muted     bool
	ready     bool
	destroyed bool
	stop      chan struct{}
}

// NewPlayer creates a new scripted player.
func NewPlayer() *Player {
	return &Player{
		instances:  make(map[domain.PlayerHandle]*instance),
		nextHandle: 1,
		duration:   DefaultDuration,
		durations:  make(map[string]time.Duration),
	}
}

// NewAutoPlayer creates a player that readies and ends instances on its own.
func NewAutoPlayer(cfg AutoConfig) *Player {
	if cfg.Tick <= 0 {
		cfg.Tick = 250 * time.Millisecond
	}
	p := NewPlayer()
	p.auto = &cfg
	return p
}

// SetLogger sets the logger for this player.
// This should be called after construction before using the player.
func (p *Player) SetLogger(logger *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// SetDuration sets the duration reported by instances created afterward.
func (p *Player) SetDuration(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duration = d
}

// SetDurationFor sets the duration reported for one media reference.
func (p *Player) SetDurationFor(mediaRef string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.durations[mediaRef] = d
}

// SetFailCreate configures the player to fail Create synchronously (for testing).
func (p *Player) SetFailCreate(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failCreate = fail
}

// SetFailPlay configures the player to fail Play (for testing).
func (p *Player) SetFailPlay(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPlay = fail
}

// Create registers a new instance. Readiness is reported later.
func (p *Player) Create(container, mediaRef string, opts ports.PlayerOptions, callbacks ports.PlayerCallbacks) (domain.PlayerHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.InvalidPlayerHandle, domain.NewRemotePlayerError("create", domain.InvalidPlayerHandle, -1, "player closed", nil)
	}
	if p.failCreate {
		return domain.InvalidPlayerHandle, domain.NewRemotePlayerError("create", domain.InvalidPlayerHandle, -1, "mock create failed", nil)
	}

	handle := p.nextHandle
	p.nextHandle++

	duration := p.duration
	if d, ok := p.durations[mediaRef]; ok {
		duration = d
	}

	inst := &instance{
		handle:    handle,
		mediaRef:  mediaRef,
		opts:      opts,
		callbacks: callbacks,
		duration:  duration,
		position:  opts.StartAt,
		muted:     opts.Muted,
		stop:      make(chan struct{}),
	}
	p.instances[handle] = inst
	p.calls = append(p.calls, Call{Op: "create", Handle: handle})

	if p.logger != nil {
		p.logger.Debug("instance created",
			slog.Int64("handle", int64(handle)),
			slog.String("media_ref", mediaRef),
			slog.String("container", container))
	}

	if p.auto != nil {
		p.autoWg.Add(1)
		go p.drive(inst, *p.auto)
	}

	return handle, nil
}

// Destroy marks the instance destroyed. In scripted mode its callbacks stay
// reachable so tests can fire late events for it; auto mode forgets it.
func (p *Player) Destroy(handle domain.PlayerHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instances[handle]
	if !ok {
		return nil
	}
	p.calls = append(p.calls, Call{Op: "destroy", Handle: handle})
	if !inst.destroyed {
		inst.destroyed = true
		inst.playing = false
		close(inst.stop)
	}
	if p.auto != nil {
		delete(p.instances, handle)
	}
	return nil
}

// Play starts playback.
func (p *Player) Play(handle domain.PlayerHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, err := p.live(handle)
	if err != nil {
		return err
	}
	p.calls = append(p.calls, Call{Op: "play", Handle: handle})
	if p.failPlay {
		return domain.NewRemotePlayerError("play", handle, domain.CodePlayerFailure, "mock play failed", nil)
	}
	if inst.position >= inst.duration {
		inst.position = 0
	}
	inst.playing = true
	return nil
}

// Pause pauses playback.
func (p *Player) Pause(handle domain.PlayerHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, err := p.live(handle)
	if err != nil {
		return err
	}
	p.calls = append(p.calls, Call{Op: "pause", Handle: handle})
	inst.playing = false
	return nil
}

// Seek sets the playback position.
func (p *Player) Seek(handle domain.PlayerHandle, position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, err := p.live(handle)
	if err != nil {
		return err
	}
	p.calls = append(p.calls, Call{Op: "seek", Handle: handle, Position: position})
	inst.position = min(max(position, 0), inst.duration)
	return nil
}

// Mute silences the instance.
func (p *Player) Mute(handle domain.PlayerHandle) error {
	return p.setMuted(handle, true)
}

// Unmute restores sound.
func (p *Player) Unmute(handle domain.PlayerHandle) error {
	return p.setMuted(handle, false)
}

func (p *Player) setMuted(handle domain.PlayerHandle, muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, err := p.live(handle)
	if err != nil {
		return err
	}
	op := "unmute"
	if muted {
		op = "mute"
	}
	p.calls = append(p.calls, Call{Op: op, Handle: handle})
	inst.muted = muted
	return nil
}

// CurrentTime returns the simulated playback position.
func (p *Player) CurrentTime(handle domain.PlayerHandle) (time.Duration, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	inst, err := p.live(handle)
	if err != nil {
		return 0, err
	}
	return inst.position, nil
}

// Duration returns the instance duration once ready, 0 before.
func (p *Player) Duration(handle domain.PlayerHandle) (time.Duration, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	inst, err := p.live(handle)
	if err != nil {
		return 0, err
	}
	if !inst.ready {
		return 0, nil
	}
	return inst.duration, nil
}

// Close destroys every instance and waits for auto-mode goroutines.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, inst := range p.instances {
		if !inst.destroyed {
			inst.destroyed = true
			close(inst.stop)
		}
	}
	p.mu.Unlock()

	p.autoWg.Wait()
	return nil
}

// live returns a non-destroyed instance. Callers hold p.mu.
func (p *Player) live(handle domain.PlayerHandle) (*instance, error) {
	inst, ok := p.instances[handle]
	if !ok || inst.destroyed {
		return nil, domain.ErrInvalidPlayerHandle
	}
	return inst, nil
}

// Verify that Player implements the RemotePlayer interface
var _ ports.RemotePlayer = (*Player)(nil)
