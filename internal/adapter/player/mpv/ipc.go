package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command []any `json:"command"`
}

// ipcMessage is one newline-delimited JSON line received from mpv. Replies
// carry Error; events carry Event.
type ipcMessage struct {
	Event  string `json:"event,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	maxRetries   = 3
	retryDelay   = 100 * time.Millisecond
	dialTimeout  = time.Second
	readDeadline = time.Second
)

// errPropertyUnavailable is mpv's reply for a property without a value yet,
// such as duration before the file is loaded.
var errPropertyUnavailable = errors.New("property unavailable")

// commandError is an error reply from mpv. It is not retried.
type commandError struct {
	Reason string
}

func (e *commandError) Error() string {
	return "mpv error: " + e.Reason
}

func (e *commandError) Is(target error) bool {
	return target == errPropertyUnavailable && e.Reason == errPropertyUnavailable.Error()
}

// client sends commands to one mpv instance, a connection per command.
type client struct {
	socketPath string
	mu         sync.Mutex
}

// command sends a JSON-IPC command, retrying transient connection errors.
func (c *client) command(args ...any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		result, err := doCommand(c.socketPath, args)
		if err == nil {
			return result, nil
		}
		var cmdErr *commandError
		if errors.As(err, &cmdErr) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc command failed after %d attempts: %w", maxRetries, lastErr)
}

// doCommand performs a single IPC command attempt. Event lines that arrive
// before the reply are skipped.
func doCommand(socketPath string, args []any) (any, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := writeCommand(conn, args); err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		msg, err := parseMessage(line)
		if err != nil {
			return nil, err
		}
		if msg.Event != "" {
			continue
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, &commandError{Reason: msg.Error}
		}
		return msg.Data, nil
	}
}

func writeCommand(conn net.Conn, args []any) error {
	payload, err := json.Marshal(ipcCommand{Command: args})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	// mpv requires newline-delimited JSON
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func parseMessage(line []byte) (ipcMessage, error) {
	var msg ipcMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return msg, fmt.Errorf("unmarshal: %w", err)
	}
	return msg, nil
}

func floatData(name string, data any) (float64, error) {
	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected number, got %T", name, data)
	}
	return val, nil
}

func toSeconds(d time.Duration) float64 {
	return d.Seconds()
}

func fromSeconds(s float64) time.Duration {
	if s < 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
