// Package mpv implements the RemotePlayer interface on top of mpv processes
// driven through mpv's JSON IPC socket. Each instance is its own mpv process,
// so destroying one never disturbs the next.
package mpv

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

const (
	defaultBinary     = "mpv"
	defaultSocketWait = 3 * time.Second
	socketPoll        = 50 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

// Config configures the mpv backend.
type Config struct {
	// Path is the mpv binary. Defaults to "mpv" on PATH.
	Path string

	// SocketDir holds the per-instance IPC sockets. Defaults to os.TempDir().
	SocketDir string

	// SocketWait bounds how long a new process may take to open its socket.
	SocketWait time.Duration

	// ExtraArgs are appended to every mpv command line.
	ExtraArgs []string
}

// Player is the mpv implementation of ports.RemotePlayer.
//
// Thread-safety: This implementation is thread-safe.
type Player struct {
	logger *slog.Logger
	cfg    Config

	instances  map[domain.PlayerHandle]*instance
	nextHandle domain.PlayerHandle
	closed     bool
	mu         sync.Mutex

	wg sync.WaitGroup
}

// instance is one mpv process.
type instance struct {
	handle     domain.PlayerHandle
	target     string
	socketPath string
	opts       ports.PlayerOptions
	callbacks  ports.PlayerCallbacks
	client     *client
	logger     *slog.Logger

	// Set by the startup goroutine before started is closed.
	cmd      *exec.Cmd
	exited   chan struct{}
	listener *listener

	ready     atomic.Bool
	buffering atomic.Bool
	destroyed atomic.Bool
	stop      chan struct{}
	started   chan struct{}
}

// NewPlayer creates an mpv backend. No process is started until Create.
func NewPlayer(logger *slog.Logger, cfg Config) *Player {
	if cfg.Path == "" {
		cfg.Path = defaultBinary
	}
	if cfg.SocketDir == "" {
		cfg.SocketDir = os.TempDir()
	}
	if cfg.SocketWait <= 0 {
		cfg.SocketWait = defaultSocketWait
	}

	return &Player{
		logger:     logger.With(slog.String("component", "mpv")),
		cfg:        cfg,
		instances:  make(map[domain.PlayerHandle]*instance),
		nextHandle: 1,
	}
}

// Available reports whether the configured mpv binary can be found.
func (p *Player) Available() bool {
	_, err := exec.LookPath(p.cfg.Path)
	return err == nil
}

// Create starts an mpv process for mediaRef. The container is ignored: mpv
// plays audio without a surface. Startup runs in the background and ends in
// OnReady or OnError.
func (p *Player) Create(_ string, mediaRef string, opts ports.PlayerOptions, callbacks ports.PlayerCallbacks) (domain.PlayerHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.InvalidPlayerHandle, domain.NewRemotePlayerError("create", domain.InvalidPlayerHandle, domain.CodePlayerFailure, "player closed", nil)
	}

	handle := p.nextHandle
	p.nextHandle++

	inst := &instance{
		handle:     handle,
		socketPath: filepath.Join(p.cfg.SocketDir, fmt.Sprintf("tunequeue-%d-%s.sock", handle, uuid.NewString()[:8])),
		opts:       opts,
		callbacks:  callbacks,
		logger:     p.logger.With(slog.Int64("handle", int64(handle))),
		stop:       make(chan struct{}),
		started:    make(chan struct{}),
	}
	inst.client = &client{socketPath: inst.socketPath}
	p.instances[handle] = inst

	target, err := sanitizeMediaTarget(mediaRef)
	inst.target = target

	p.wg.Add(1)
	go p.start(inst, err)

	return handle, nil
}

// start launches the process and reports readiness or failure.
func (p *Player) start(inst *instance, targetErr error) {
	defer p.wg.Done()
	defer close(inst.started)

	if targetErr != nil {
		inst.logger.Warn("rejected media reference", slog.Any("error", targetErr))
		inst.fireError(domain.CodeInvalidParameter)
		return
	}

	cmd := exec.Command(p.cfg.Path, buildArgs(inst.socketPath, inst.target, inst.opts, p.cfg.ExtraArgs)...)
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		inst.logger.Error("failed to start mpv", slog.String("path", p.cfg.Path), slog.Any("error", err))
		inst.fireError(domain.CodePlayerFailure)
		return
	}

	exited := make(chan struct{})
	inst.cmd = cmd
	inst.exited = exited

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = cmd.Wait()
		close(exited)
		if !inst.destroyed.Load() {
			inst.logger.Warn("mpv exited unexpectedly")
			inst.fireError(domain.CodePlayerFailure)
		}
	}()

	if err := p.waitForSocket(inst); err != nil {
		if !inst.destroyed.Load() {
			inst.logger.Error("mpv socket not available", slog.Any("error", err))
			inst.fireError(domain.CodePlayerFailure)
		}
		return
	}

	l, err := listen(inst.socketPath, inst.onMessage)
	if err != nil {
		inst.logger.Error("failed to attach event listener", slog.Any("error", err))
		inst.fireError(domain.CodePlayerFailure)
		return
	}
	inst.listener = l

	// mpv may have loaded the file before the listener attached.
	if _, err := inst.client.command("get_property", "duration"); err == nil {
		inst.markReady()
	}
}

// waitForSocket polls until the IPC socket accepts commands.
func (p *Player) waitForSocket(inst *instance) error {
	deadline := time.NewTimer(p.cfg.SocketWait)
	defer deadline.Stop()
	ticker := time.NewTicker(socketPoll)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(inst.socketPath); err == nil {
			if _, err := doCommand(inst.socketPath, []any{"get_property", "pid"}); err == nil {
				return nil
			}
		}

		select {
		case <-ticker.C:
		case <-inst.exited:
			return errors.New("mpv exited during startup")
		case <-inst.stop:
			return errors.New("destroyed during startup")
		case <-deadline.C:
			return fmt.Errorf("socket %s not ready after %s", inst.socketPath, p.cfg.SocketWait)
		}
	}
}

// Destroy stops the instance's callbacks and tears the process down in the
// background.
func (p *Player) Destroy(handle domain.PlayerHandle) error {
	p.mu.Lock()
	inst, ok := p.instances[handle]
	delete(p.instances, handle)
	p.mu.Unlock()

	if !ok || inst.destroyed.Swap(true) {
		return nil
	}
	close(inst.stop)

	p.wg.Add(1)
	go p.teardown(inst)
	return nil
}

func (p *Player) teardown(inst *instance) {
	defer p.wg.Done()
	<-inst.started

	if inst.listener != nil {
		inst.listener.Close()
	}
	if inst.cmd != nil {
		_, _ = doCommand(inst.socketPath, []any{"quit"})
		select {
		case <-inst.exited:
		case <-time.After(quitTimeout):
			inst.logger.Warn("mpv did not quit, killing")
			_ = killProcess(inst.cmd)
			<-inst.exited
		}
	}
	_ = os.Remove(inst.socketPath)
	inst.logger.Debug("instance destroyed")
}

// Play unpauses the instance.
func (p *Player) Play(handle domain.PlayerHandle) error {
	return p.set(handle, "play", "pause", false)
}

// Pause pauses the instance.
func (p *Player) Pause(handle domain.PlayerHandle) error {
	return p.set(handle, "pause", "pause", true)
}

// Mute silences the instance.
func (p *Player) Mute(handle domain.PlayerHandle) error {
	return p.set(handle, "mute", "mute", true)
}

// Unmute restores sound.
func (p *Player) Unmute(handle domain.PlayerHandle) error {
	return p.set(handle, "unmute", "mute", false)
}

// Seek jumps to an absolute position.
func (p *Player) Seek(handle domain.PlayerHandle, position time.Duration) error {
	inst, err := p.live(handle, "seek")
	if err != nil {
		return err
	}
	if _, err := inst.client.command("seek", toSeconds(position), "absolute"); err != nil {
		return commandFailed("seek", handle, err)
	}
	return nil
}

// CurrentTime returns the playback position.
func (p *Player) CurrentTime(handle domain.PlayerHandle) (time.Duration, error) {
	return p.timeProperty(handle, "current_time", "time-pos")
}

// Duration returns the media length, 0 while mpv does not know it.
func (p *Player) Duration(handle domain.PlayerHandle) (time.Duration, error) {
	return p.timeProperty(handle, "duration", "duration")
}

func (p *Player) timeProperty(handle domain.PlayerHandle, op, name string) (time.Duration, error) {
	inst, err := p.live(handle, op)
	if err != nil {
		return 0, err
	}

	data, err := inst.client.command("get_property", name)
	if errors.Is(err, errPropertyUnavailable) {
		return 0, nil
	}
	if err != nil {
		return 0, commandFailed(op, handle, err)
	}

	secs, err := floatData(name, data)
	if err != nil {
		return 0, commandFailed(op, handle, err)
	}
	return fromSeconds(secs), nil
}

func (p *Player) set(handle domain.PlayerHandle, op, name string, value bool) error {
	inst, err := p.live(handle, op)
	if err != nil {
		return err
	}
	if _, err := inst.client.command("set_property", name, value); err != nil {
		return commandFailed(op, handle, err)
	}
	return nil
}

// live returns a ready, undestroyed instance.
func (p *Player) live(handle domain.PlayerHandle, op string) (*instance, error) {
	p.mu.Lock()
	inst, ok := p.instances[handle]
	p.mu.Unlock()

	if !ok {
		return nil, domain.NewRemotePlayerError(op, handle, domain.CodeInvalidParameter, "unknown instance", domain.ErrInvalidPlayerHandle)
	}
	if !inst.ready.Load() {
		return nil, domain.NewRemotePlayerError(op, handle, domain.CodePlayerFailure, "instance not ready", nil)
	}
	return inst, nil
}

func commandFailed(op string, handle domain.PlayerHandle, err error) error {
	return domain.NewRemotePlayerError(op, handle, domain.CodePlayerFailure, "ipc command failed", err)
}

// Close destroys every instance and waits for their processes to exit.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	handles := make([]domain.PlayerHandle, 0, len(p.instances))
	for h := range p.instances {
		handles = append(handles, h)
	}
	p.mu.Unlock()

	for _, h := range handles {
		_ = p.Destroy(h)
	}
	p.wg.Wait()
	return nil
}

// onMessage translates mpv events into callbacks. It runs on the listener
// goroutine.
func (inst *instance) onMessage(msg ipcMessage) {
	if inst.destroyed.Load() {
		return
	}

	switch msg.Event {
	case "file-loaded":
		inst.markReady()
	case "end-file":
		if msg.Reason == "error" {
			inst.fireError(domain.CodeNotFound)
		}
	case "property-change":
		if !inst.ready.Load() {
			return
		}
		if state, ok := inst.stateFor(msg.Name, msg.Data); ok && inst.callbacks.OnStateChange != nil {
			inst.callbacks.OnStateChange(state)
		}
	}
}

// stateFor maps an observed property change onto a remote state.
func (inst *instance) stateFor(name string, data any) (domain.RemoteState, bool) {
	on, ok := data.(bool)
	if !ok {
		return 0, false
	}

	switch name {
	case "eof-reached":
		if on {
			return domain.RemoteEnded, true
		}
	case "pause":
		if !on {
			return domain.RemotePlaying, true
		}
		// keep-open pauses at the end of the file; eof-reached reports that.
		if eof, err := inst.client.command("get_property", "eof-reached"); err == nil && eof == true {
			return 0, false
		}
		return domain.RemotePaused, true
	case "paused-for-cache":
		if on {
			inst.buffering.Store(true)
			return domain.RemoteBuffering, true
		}
		if inst.buffering.Swap(false) {
			return domain.RemotePlaying, true
		}
	}
	return 0, false
}

func (inst *instance) markReady() {
	if inst.destroyed.Load() || !inst.ready.CompareAndSwap(false, true) {
		return
	}
	inst.logger.Debug("instance ready")
	if inst.callbacks.OnReady != nil {
		inst.callbacks.OnReady()
	}
}

func (inst *instance) fireError(code int) {
	if inst.destroyed.Load() || inst.callbacks.OnError == nil {
		return
	}
	inst.callbacks.OnError(code)
}

// buildArgs assembles the mpv command line. Instances always start paused
// unless autoplay is requested; the engine issues Play once ready.
func buildArgs(socketPath, target string, opts ports.PlayerOptions, extra []string) []string {
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--keep-open=yes",
		"--vid=no",
		"--input-ipc-server=" + socketPath,
		"--pause=" + yesNo(!opts.Autoplay),
		"--mute=" + yesNo(opts.Muted),
	}
	if opts.StartAt > 0 {
		args = append(args, "--start="+strconv.FormatFloat(toSeconds(opts.StartAt), 'f', 3, 64))
	}
	args = append(args, extra...)
	return append(args, "--", target)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// sanitizeMediaTarget validates a media reference before it reaches the mpv
// command line. URLs must be http or https; anything else is a local path.
func sanitizeMediaTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("empty media target")
	}
	if strings.IndexFunc(target, unicode.IsControl) >= 0 {
		return "", errors.New("media target contains control characters")
	}
	if strings.HasPrefix(target, "-") {
		return "", errors.New("media target must not start with '-'")
	}

	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("invalid media URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return "", errors.New("media URL has no host")
		}
		return u.String(), nil
	}

	return filepath.Clean(target), nil
}
