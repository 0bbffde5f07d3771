package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
	"github.com/tejashwikalptaru/tunequeue/internal/service"
)

const seekStep = 10 * time.Second

var errQuit = errors.New("quit")

// syncWriter serializes writes from the control loop and event handlers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter {
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `controls (type a key and press enter):
  p  pause / resume     n  next          b  previous
  s  toggle shuffle     r  cycle repeat  m  toggle mute
  +  seek forward 10s   -  seek back 10s
  h  help               q  quit
`)
}

// runControls reads one command per line until q, end of input or ctx is done.
// Command failures are printed and the loop continues.
func runControls(ctx context.Context, engine *service.PlaybackEngine, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}

			err := handleKey(ctx, engine, line, out)
			if errors.Is(err, errQuit) {
				return nil
			}
			if errors.Is(err, domain.ErrEngineClosed) {
				return err
			}
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func handleKey(ctx context.Context, engine *service.PlaybackEngine, key string, out io.Writer) error {
	switch key {
	case "q":
		return errQuit
	case "h", "?":
		printHelp(out)
		return nil
	case "n":
		return engine.Next(ctx)
	case "b":
		return engine.Previous(ctx)
	case "s":
		return engine.ToggleShuffle(ctx)
	case "r":
		return engine.CycleRepeat(ctx)
	}

	session, err := engine.Snapshot(ctx)
	if err != nil {
		return err
	}

	switch key {
	case "p":
		if session.IsPlaying {
			return engine.Pause(ctx)
		}
		return engine.Resume(ctx)
	case "m":
		return engine.SetMuted(ctx, !session.Muted)
	case "+":
		return engine.Seek(ctx, session.CurrentTime+seekStep)
	case "-":
		return engine.Seek(ctx, max(session.CurrentTime-seekStep, 0))
	default:
		return fmt.Errorf("unknown command %q (h for help)", key)
	}
}

// watchSession prints session changes to out and returns a function that
// stops watching.
func watchSession(bus ports.EventBus, out io.Writer) func() {
	ids := []domain.SubscriptionID{
		bus.Subscribe(domain.EventTrackStarted, func(event domain.Event) {
			e := event.(domain.TrackStartedEvent)
			fmt.Fprintf(out, "playing: %s\n", trackLabel(e.Track))
		}),
		bus.Subscribe(domain.EventTrackPaused, func(event domain.Event) {
			e := event.(domain.TrackPausedEvent)
			fmt.Fprintf(out, "paused at %s\n", formatPosition(e.Position))
		}),
		bus.Subscribe(domain.EventTrackError, func(event domain.Event) {
			e := event.(domain.TrackErrorEvent)
			fmt.Fprintf(out, "cannot play %s: %v\n", trackLabel(e.Track), e.Error)
		}),
		bus.Subscribe(domain.EventPlaybackStopped, func(domain.Event) {
			fmt.Fprintln(out, "stopped")
		}),
		bus.Subscribe(domain.EventModeChanged, func(event domain.Event) {
			e := event.(domain.ModeChangedEvent)
			fmt.Fprintf(out, "shuffle %s, repeat %s\n", onOff(e.Shuffle), e.Repeat)
		}),
		bus.Subscribe(domain.EventMuteToggled, func(event domain.Event) {
			if event.(domain.MuteToggledEvent).Muted {
				fmt.Fprintln(out, "muted")
			} else {
				fmt.Fprintln(out, "unmuted")
			}
		}),
	}

	return func() {
		for _, id := range ids {
			bus.Unsubscribe(id)
		}
	}
}

func trackLabel(t domain.Track) string {
	title := t.Title
	if title == "" {
		title = t.MediaRef
	}
	if t.Artist == "" {
		return title
	}
	return t.Artist + " - " + title
}

func formatPosition(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
