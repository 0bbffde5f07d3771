package mock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
	"github.com/tejashwikalptaru/tunequeue/internal/testutil"
)

func TestCreate_AssignsIncreasingHandles(t *testing.T) {
	p := NewPlayer()

	h1, err := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{})
	require.NoError(t, err)
	h2, err := p.Create("main", "b", ports.PlayerOptions{}, ports.PlayerCallbacks{})
	require.NoError(t, err)

	assert.Greater(t, h2, h1)
	assert.Equal(t, h2, p.LastHandle())
	assert.Equal(t, 2, p.LiveInstances())
	assert.Equal(t, "b", p.MediaRef(h2))
}

func TestCreate_Fail(t *testing.T) {
	p := NewPlayer()
	p.SetFailCreate(true)

	h, err := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{})
	assert.Error(t, err)
	assert.Equal(t, domain.InvalidPlayerHandle, h)
}

func TestDuration_UnknownUntilReady(t *testing.T) {
	p := NewPlayer()
	p.SetDurationFor("a", 42*time.Second)

	h, err := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{})
	require.NoError(t, err)

	d, err := p.Duration(h)
	require.NoError(t, err)
	assert.Zero(t, d)

	require.NoError(t, p.SimulateReady(h))
	d, err = p.Duration(h)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, d)
}

func TestDestroy_RejectsFurtherCommands(t *testing.T) {
	p := NewPlayer()
	h, _ := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{})

	require.NoError(t, p.Destroy(h))
	require.NoError(t, p.Destroy(h))

	assert.ErrorIs(t, p.Play(h), domain.ErrInvalidPlayerHandle)
	assert.Equal(t, 0, p.LiveInstances())
	assert.Equal(t, 1, p.CallCount("destroy", h))
}

func TestSimulate_FiresCallbacks(t *testing.T) {
	p := NewPlayer()

	var ready atomic.Int32
	var lastState atomic.Int32
	var lastCode atomic.Int32
	h, _ := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{
		OnReady:       func() { ready.Add(1) },
		OnStateChange: func(s domain.RemoteState) { lastState.Store(int32(s)) },
		OnError:       func(code int) { lastCode.Store(int32(code)) },
	})

	require.NoError(t, p.SimulateReady(h))
	require.NoError(t, p.SimulateState(h, domain.RemoteBuffering))
	require.NoError(t, p.SimulateError(h, domain.CodeNotFound))

	assert.EqualValues(t, 1, ready.Load())
	assert.EqualValues(t, domain.RemoteBuffering, lastState.Load())
	assert.EqualValues(t, domain.CodeNotFound, lastCode.Load())
}

func TestSimulateReady_DestroyedInstanceStillFires(t *testing.T) {
	p := NewPlayer()

	var ready atomic.Bool
	h, _ := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{
		OnReady: func() { ready.Store(true) },
	})
	require.NoError(t, p.Destroy(h))

	require.NoError(t, p.SimulateReady(h))
	assert.True(t, ready.Load())
}

func TestSeek_ClampsToDuration(t *testing.T) {
	p := NewPlayer()
	p.SetDuration(time.Minute)
	h, _ := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{})

	require.NoError(t, p.Seek(h, 5*time.Minute))
	pos, err := p.CurrentTime(h)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, pos)
}

func TestPlayPauseMute(t *testing.T) {
	p := NewPlayer()
	h, _ := p.Create("main", "a", ports.PlayerOptions{Muted: true}, ports.PlayerCallbacks{})
	assert.True(t, p.IsMuted(h))

	require.NoError(t, p.Play(h))
	assert.True(t, p.IsPlaying(h))
	require.NoError(t, p.Pause(h))
	assert.False(t, p.IsPlaying(h))
	require.NoError(t, p.Unmute(h))
	assert.False(t, p.IsMuted(h))

	p.SetFailPlay(true)
	assert.Error(t, p.Play(h))
}

func TestAutoPlayer_ReadiesAndEnds(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p := NewAutoPlayer(AutoConfig{ReadyDelay: time.Millisecond, Tick: time.Millisecond})
	p.SetDuration(5 * time.Millisecond)

	readyCh := make(chan struct{}, 1)
	endedCh := make(chan struct{}, 1)
	h, err := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{
		OnReady: func() { readyCh <- struct{}{} },
		OnStateChange: func(s domain.RemoteState) {
			if s == domain.RemoteEnded {
				select {
				case endedCh <- struct{}{}:
				default:
				}
			}
		},
	})
	require.NoError(t, err)

	select {
	case <-readyCh:
	case <-time.After(time.Second):
		t.Fatal("ready never fired")
	}
	require.NoError(t, p.Play(h))

	select {
	case <-endedCh:
	case <-time.After(time.Second):
		t.Fatal("ended never fired")
	}

	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.LiveInstances())
}

func TestAutoPlayer_DestroyForgetsInstance(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p := NewAutoPlayer(AutoConfig{ReadyDelay: time.Hour})
	for i := 0; i < 3; i++ {
		h, err := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{})
		require.NoError(t, err)
		require.NoError(t, p.Destroy(h))
		assert.ErrorIs(t, p.SimulateReady(h), domain.ErrInvalidPlayerHandle)
	}

	p.mu.RLock()
	assert.Empty(t, p.instances)
	p.mu.RUnlock()
	destroys := 0
	for _, c := range p.Calls() {
		if c.Op == "destroy" {
			destroys++
		}
	}
	assert.Equal(t, 3, destroys)

	require.NoError(t, p.Close())
}

func TestScriptedPlayer_DestroyKeepsCallbacks(t *testing.T) {
	p := NewPlayer()
	fired := false
	h, err := p.Create("main", "a", ports.PlayerOptions{}, ports.PlayerCallbacks{OnReady: func() { fired = true }})
	require.NoError(t, err)
	require.NoError(t, p.Destroy(h))

	require.NoError(t, p.SimulateReady(h))
	assert.True(t, fired)
	assert.Equal(t, 0, p.LiveInstances())
}
