package mpv

import (
	"bufio"
	"fmt"
	"net"
	"sync"
)

// Properties observed on every instance.
var observedProperties = []string{
	"pause",
	"eof-reached",
	"paused-for-cache",
}

// listener holds the persistent connection mpv pushes events on.
// Property observers belong to the connection that registered them, so they
// are registered here rather than through the command client.
type listener struct {
	conn   net.Conn
	handle func(ipcMessage)
	wg     sync.WaitGroup
	once   sync.Once
}

// listen connects to socketPath, observes the instance properties and starts
// the read loop. handle runs on the read loop goroutine.
func listen(socketPath string, handle func(ipcMessage)) (*listener, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("event listener connect: %w", err)
	}

	for i, name := range observedProperties {
		if err := writeCommand(conn, []any{"observe_property", i + 1, name}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("observe %s: %w", name, err)
		}
	}

	l := &listener{conn: conn, handle: handle}
	l.wg.Add(1)
	go l.readLoop()
	return l, nil
}

func (l *listener) readLoop() {
	defer l.wg.Done()

	scanner := bufio.NewScanner(l.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		msg, err := parseMessage(scanner.Bytes())
		if err != nil || msg.Event == "" {
			continue
		}
		l.handle(msg)
	}
}

// Close drops the connection and waits for the read loop to exit.
// It must not be called from handle.
func (l *listener) Close() {
	l.once.Do(func() {
		l.conn.Close()
	})
	l.wg.Wait()
}
