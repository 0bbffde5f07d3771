package mpv

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/logger"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

// fakeMPV answers JSON IPC commands the way mpv does.
type fakeMPV struct {
	t          *testing.T
	socketPath string
	ln         net.Listener

	mu         sync.Mutex
	properties map[string]any
	commands   [][]any
	conns      []net.Conn
	wg         sync.WaitGroup
}

func newFakeMPV(t *testing.T) *fakeMPV {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	f := &fakeMPV{
		t:          t,
		socketPath: socketPath,
		ln:         ln,
		properties: map[string]any{"pause": true, "eof-reached": false, "time-pos": 12.5},
	}
	f.wg.Add(1)
	go f.accept()
	t.Cleanup(f.close)
	return f
}

func (f *fakeMPV) accept() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()
		f.wg.Add(1)
		go f.serve(conn)
	}
}

func (f *fakeMPV) serve(conn net.Conn) {
	defer f.wg.Done()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var cmd ipcCommand
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			continue
		}
		f.mu.Lock()
		f.commands = append(f.commands, cmd.Command)
		reply := f.reply(cmd.Command)
		f.mu.Unlock()

		// mpv interleaves events with replies.
		_, _ = conn.Write([]byte(`{"event":"audio-reconfig"}` + "\n"))
		payload, _ := json.Marshal(reply)
		_, _ = conn.Write(append(payload, '\n'))
	}
}

func (f *fakeMPV) reply(cmd []any) ipcMessage {
	name, _ := cmd[0].(string)
	switch name {
	case "get_property":
		val, ok := f.properties[cmd[1].(string)]
		if !ok {
			return ipcMessage{Error: "property unavailable"}
		}
		return ipcMessage{Error: "success", Data: val}
	case "set_property":
		f.properties[cmd[1].(string)] = cmd[2]
		return ipcMessage{Error: "success"}
	case "observe_property", "seek", "quit":
		return ipcMessage{Error: "success"}
	default:
		return ipcMessage{Error: "invalid parameter"}
	}
}

// push sends an event line on every open connection.
func (f *fakeMPV) push(msg ipcMessage) {
	payload, err := json.Marshal(msg)
	require.NoError(f.t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		_, _ = conn.Write(append(payload, '\n'))
	}
}

func (f *fakeMPV) setProperty(name string, val any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.properties[name] = val
}

func (f *fakeMPV) recorded() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]any(nil), f.commands...)
}

func (f *fakeMPV) close() {
	_ = f.ln.Close()
	f.mu.Lock()
	for _, conn := range f.conns {
		_ = conn.Close()
	}
	f.mu.Unlock()
	f.wg.Wait()
}

// callbackRecorder collects callbacks fired by an instance.
type callbackRecorder struct {
	mu     sync.Mutex
	ready  int
	states []domain.RemoteState
	codes  []int
}

func (r *callbackRecorder) callbacks() ports.PlayerCallbacks {
	return ports.PlayerCallbacks{
		OnReady: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ready++
		},
		OnStateChange: func(s domain.RemoteState) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, s)
		},
		OnError: func(code int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.codes = append(r.codes, code)
		},
	}
}

func (r *callbackRecorder) snapshot() (int, []domain.RemoteState, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready, append([]domain.RemoteState(nil), r.states...), append([]int(nil), r.codes...)
}

// attach registers a ready instance backed by the fake socket.
func attach(t *testing.T, p *Player, f *fakeMPV, rec *callbackRecorder) *instance {
	t.Helper()
	started := make(chan struct{})
	close(started)
	inst := &instance{
		handle:     p.nextHandle,
		socketPath: f.socketPath,
		client:     &client{socketPath: f.socketPath},
		callbacks:  rec.callbacks(),
		logger:     logger.NewTestLogger(),
		stop:       make(chan struct{}),
		started:    started,
	}
	inst.ready.Store(true)
	p.mu.Lock()
	p.instances[inst.handle] = inst
	p.nextHandle++
	p.mu.Unlock()
	return inst
}

func TestSanitizeMediaTarget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"local path", "  /music/a.mp3 ", "/music/a.mp3", false},
		{"relative path cleaned", "music/../a.mp3", "a.mp3", false},
		{"https url", "https://example.com/a.mp3", "https://example.com/a.mp3", false},
		{"empty", "   ", "", true},
		{"flag injection", "--script=evil.lua", "", true},
		{"control chars", "a\x00.mp3", "", true},
		{"unsupported scheme", "file:///etc/passwd", "", true},
		{"url without host", "http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeMediaTarget(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("/tmp/s.sock", "/music/a.mp3", ports.PlayerOptions{Muted: true, StartAt: 1500 * time.Millisecond}, []string{"--volume=50"})

	assert.Contains(t, args, "--input-ipc-server=/tmp/s.sock")
	assert.Contains(t, args, "--pause=yes")
	assert.Contains(t, args, "--mute=yes")
	assert.Contains(t, args, "--start=1.500")
	assert.Contains(t, args, "--volume=50")
	assert.Equal(t, []string{"--", "/music/a.mp3"}, args[len(args)-2:], "target always follows --")

	autoplay := buildArgs("/tmp/s.sock", "x.mp3", ports.PlayerOptions{Autoplay: true}, nil)
	assert.Contains(t, autoplay, "--pause=no")
	assert.Contains(t, autoplay, "--mute=no")
}

func TestClient_CommandSkipsEvents(t *testing.T) {
	f := newFakeMPV(t)
	c := &client{socketPath: f.socketPath}

	data, err := c.command("get_property", "time-pos")
	require.NoError(t, err)
	assert.Equal(t, 12.5, data)
}

func TestClient_PropertyUnavailableIsNotRetried(t *testing.T) {
	f := newFakeMPV(t)
	c := &client{socketPath: f.socketPath}

	_, err := c.command("get_property", "duration")
	assert.ErrorIs(t, err, errPropertyUnavailable)
	assert.Len(t, f.recorded(), 1)
}

func TestClient_ConnectFailure(t *testing.T) {
	c := &client{socketPath: filepath.Join(t.TempDir(), "missing.sock")}

	_, err := c.command("get_property", "pid")
	assert.Error(t, err)
}

func TestPlayer_Commands(t *testing.T) {
	f := newFakeMPV(t)
	p := NewPlayer(logger.NewTestLogger(), Config{})
	rec := &callbackRecorder{}
	inst := attach(t, p, f, rec)

	require.NoError(t, p.Play(inst.handle))
	require.NoError(t, p.Mute(inst.handle))
	require.NoError(t, p.Seek(inst.handle, 90*time.Second))

	pos, err := p.CurrentTime(inst.handle)
	require.NoError(t, err)
	assert.Equal(t, 12500*time.Millisecond, pos)

	dur, err := p.Duration(inst.handle)
	require.NoError(t, err, "unknown duration is not an error")
	assert.Zero(t, dur)

	cmds := f.recorded()
	assert.Equal(t, []any{"set_property", "pause", false}, cmds[0])
	assert.Equal(t, []any{"set_property", "mute", true}, cmds[1])
	assert.Equal(t, []any{"seek", 90.0, "absolute"}, cmds[2])
}

func TestPlayer_UnknownAndUnreadyHandles(t *testing.T) {
	p := NewPlayer(logger.NewTestLogger(), Config{})

	var remoteErr *domain.RemotePlayerError
	err := p.Play(42)
	require.ErrorAs(t, err, &remoteErr)
	assert.ErrorIs(t, err, domain.ErrInvalidPlayerHandle)

	f := newFakeMPV(t)
	inst := attach(t, p, f, &callbackRecorder{})
	inst.ready.Store(false)
	err = p.Pause(inst.handle)
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, domain.CodePlayerFailure, remoteErr.Code)

	assert.NoError(t, p.Destroy(999), "destroying an unknown handle is a no-op")
}

func TestInstance_StateMapping(t *testing.T) {
	f := newFakeMPV(t)
	p := NewPlayer(logger.NewTestLogger(), Config{})
	rec := &callbackRecorder{}
	inst := attach(t, p, f, rec)

	inst.onMessage(ipcMessage{Event: "property-change", Name: "pause", Data: false})
	inst.onMessage(ipcMessage{Event: "property-change", Name: "paused-for-cache", Data: true})
	inst.onMessage(ipcMessage{Event: "property-change", Name: "paused-for-cache", Data: false})
	inst.onMessage(ipcMessage{Event: "property-change", Name: "paused-for-cache", Data: false})
	inst.onMessage(ipcMessage{Event: "property-change", Name: "pause", Data: true})
	inst.onMessage(ipcMessage{Event: "property-change", Name: "duration", Data: 200.0})

	_, states, _ := rec.snapshot()
	assert.Equal(t, []domain.RemoteState{
		domain.RemotePlaying,
		domain.RemoteBuffering,
		domain.RemotePlaying,
		domain.RemotePaused,
	}, states)
}

func TestInstance_PauseAtEndOfFileReportsEnded(t *testing.T) {
	f := newFakeMPV(t)
	f.setProperty("eof-reached", true)
	p := NewPlayer(logger.NewTestLogger(), Config{})
	rec := &callbackRecorder{}
	inst := attach(t, p, f, rec)

	inst.onMessage(ipcMessage{Event: "property-change", Name: "pause", Data: true})
	inst.onMessage(ipcMessage{Event: "property-change", Name: "eof-reached", Data: true})

	_, states, _ := rec.snapshot()
	assert.Equal(t, []domain.RemoteState{domain.RemoteEnded}, states)
}

func TestInstance_EventsBeforeReadyAndAfterDestroy(t *testing.T) {
	f := newFakeMPV(t)
	p := NewPlayer(logger.NewTestLogger(), Config{})
	rec := &callbackRecorder{}
	inst := attach(t, p, f, rec)
	inst.ready.Store(false)

	inst.onMessage(ipcMessage{Event: "property-change", Name: "pause", Data: true})
	inst.onMessage(ipcMessage{Event: "file-loaded"})
	inst.onMessage(ipcMessage{Event: "file-loaded"})
	inst.onMessage(ipcMessage{Event: "end-file", Reason: "error"})

	inst.destroyed.Store(true)
	inst.onMessage(ipcMessage{Event: "end-file", Reason: "error"})

	ready, states, codes := rec.snapshot()
	assert.Equal(t, 1, ready, "ready fires once")
	assert.Empty(t, states)
	assert.Equal(t, []int{domain.CodeNotFound}, codes)
}

func TestListener_DeliversPushedEvents(t *testing.T) {
	f := newFakeMPV(t)

	events := make(chan ipcMessage, 8)
	l, err := listen(f.socketPath, func(msg ipcMessage) { events <- msg })
	require.NoError(t, err)
	defer l.Close()

	// Wait for the observers so the listener connection is registered.
	require.Eventually(t, func() bool { return len(f.recorded()) == len(observedProperties) }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []any{"observe_property", 1.0, "pause"}, f.recorded()[0])

	f.push(ipcMessage{Event: "property-change", Name: "eof-reached", Data: true})

	var got ipcMessage
	require.Eventually(t, func() bool {
		for {
			select {
			case got = <-events:
				if got.Event == "property-change" {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "eof-reached", got.Name)
	assert.Equal(t, true, got.Data)
}

func TestPlayer_CreateRejectsBadTarget(t *testing.T) {
	p := NewPlayer(logger.NewTestLogger(), Config{})
	defer p.Close()
	rec := &callbackRecorder{}

	handle, err := p.Create("", "--script=x", ports.PlayerOptions{}, rec.callbacks())
	require.NoError(t, err, "failures are reported asynchronously")
	assert.NotEqual(t, domain.InvalidPlayerHandle, handle)

	require.Eventually(t, func() bool {
		_, _, codes := rec.snapshot()
		return len(codes) == 1 && codes[0] == domain.CodeInvalidParameter
	}, time.Second, 10*time.Millisecond)
}

func TestPlayer_CreateWithMissingBinary(t *testing.T) {
	p := NewPlayer(logger.NewTestLogger(), Config{Path: filepath.Join(t.TempDir(), "no-mpv")})
	rec := &callbackRecorder{}
	assert.False(t, p.Available())

	_, err := p.Create("", "/music/a.mp3", ports.PlayerOptions{}, rec.callbacks())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, codes := rec.snapshot()
		return len(codes) == 1 && codes[0] == domain.CodePlayerFailure
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, p.Close())
	_, err = p.Create("", "/music/a.mp3", ports.PlayerOptions{}, rec.callbacks())
	assert.Error(t, err, "closed player refuses new instances")
}
