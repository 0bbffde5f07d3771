package mock

import (
	"time"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// SimulateReady marks the instance ready and fires its OnReady callback.
// Destroyed instances still fire, which is how tests produce stale events.
func (p *Player) SimulateReady(handle domain.PlayerHandle) error {
	p.mu.Lock()
	inst, ok := p.instances[handle]
	if !ok {
		p.mu.Unlock()
		return domain.ErrInvalidPlayerHandle
	}
	inst.ready = true
	cb := inst.callbacks.OnReady
	p.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// SimulateState applies a backend state change and fires OnStateChange.
func (p *Player) SimulateState(handle domain.PlayerHandle, state domain.RemoteState) error {
	p.mu.Lock()
	inst, ok := p.instances[handle]
	if !ok {
		p.mu.Unlock()
		return domain.ErrInvalidPlayerHandle
	}
	switch state {
	case domain.RemotePlaying:
		inst.playing = true
	case domain.RemotePaused, domain.RemoteBuffering:
		inst.playing = false
	case domain.RemoteEnded:
		inst.playing = false
		inst.position = inst.duration
	}
	cb := inst.callbacks.OnStateChange
	p.mu.Unlock()

	if cb != nil {
		cb(state)
	}
	return nil
}

// SimulateError fires OnError with the given code.
func (p *Player) SimulateError(handle domain.PlayerHandle, code int) error {
	p.mu.Lock()
	inst, ok := p.instances[handle]
	if !ok {
		p.mu.Unlock()
		return domain.ErrInvalidPlayerHandle
	}
	inst.playing = false
	cb := inst.callbacks.OnError
	p.mu.Unlock()

	if cb != nil {
		cb(code)
	}
	return nil
}

// SimulateProgress moves the reported position to pos.
func (p *Player) SimulateProgress(handle domain.PlayerHandle, pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instances[handle]
	if !ok {
		return domain.ErrInvalidPlayerHandle
	}
	inst.position = pos
	return nil
}

// SimulateDuration changes the duration the instance reports, as a backend
// does once it has probed the media.
func (p *Player) SimulateDuration(handle domain.PlayerHandle, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instances[handle]
	if !ok {
		return domain.ErrInvalidPlayerHandle
	}
	inst.duration = d
	return nil
}

// Calls returns a copy of every recorded command.
func (p *Player) Calls() []Call {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns how many times op was issued for handle.
func (p *Player) CallCount(op string, handle domain.PlayerHandle) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, c := range p.calls {
		if c.Op == op && c.Handle == handle {
			n++
		}
	}
	return n
}

// LastHandle returns the most recently created handle.
func (p *Player) LastHandle() domain.PlayerHandle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nextHandle - 1
}

// LiveInstances returns the number of created, non-destroyed instances.
func (p *Player) LiveInstances() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, inst := range p.instances {
		if !inst.destroyed {
			n++
		}
	}
	return n
}

// MediaRef returns the media reference an instance was created for.
func (p *Player) MediaRef(handle domain.PlayerHandle) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if inst, ok := p.instances[handle]; ok {
		return inst.mediaRef
	}
	return ""
}

// IsPlaying reports the simulated playing flag of an instance.
func (p *Player) IsPlaying(handle domain.PlayerHandle) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	inst, ok := p.instances[handle]
	return ok && inst.playing
}

// IsMuted reports the simulated mute flag of an instance.
func (p *Player) IsMuted(handle domain.PlayerHandle) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	inst, ok := p.instances[handle]
	return ok && inst.muted
}

// drive runs one auto-mode instance until it is destroyed.
func (p *Player) drive(inst *instance, cfg AutoConfig) {
	defer p.autoWg.Done()

	select {
	case <-time.After(cfg.ReadyDelay):
	case <-inst.stop:
		return
	}
	if err := p.SimulateReady(inst.handle); err != nil {
		return
	}

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-inst.stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			if !inst.playing {
				p.mu.Unlock()
				continue
			}
			inst.position += cfg.Tick
			ended := inst.position >= inst.duration
			p.mu.Unlock()

			if ended {
				_ = p.SimulateState(inst.handle, domain.RemoteEnded)
			}
		}
	}
}
