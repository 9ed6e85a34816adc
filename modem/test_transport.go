package modem

import (
	"context"
	"io"
	"strings"
	"sync"
)

// TestTransport is a test helper that simulates a blocking transport using channels.
// This is needed because the Modem's reader goroutine continuously reads from the transport,
// and we need reads to block until data is available (like a real serial port would).
//
// Replies are scripted per command: every Write of a command queues the next
// scripted reply for it. Commands without a script get no answer.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	closed   bool
	replies  map[string][]string
	writes   []string
	// pending holds the unread rest of a chunk larger than the last Read
	pending []byte
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 64),
		replies:  make(map[string][]string),
	}
}

// Reply scripts the answers to cmd. Consecutive writes of cmd consume
// the replies in order; the last one repeats.
func (t *TestTransport) Reply(cmd string, replies ...string) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[cmd] = replies
	return t
}

// Dialer returns a Dialer handing out this transport.
func (t *TestTransport) Dialer() Dialer {
	return testDialer{t}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}

	cmd := strings.TrimSuffix(string(p), "\r")
	t.writes = append(t.writes, cmd)

	queue := t.replies[cmd]
	if len(queue) == 0 {
		return len(p), nil
	}
	t.readChan <- []byte(queue[0])
	if len(queue) > 1 {
		t.replies[cmd] = queue[1:]
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	data := t.pending
	if len(data) == 0 {
		var ok bool
		if data, ok = <-t.readChan; !ok {
			return 0, io.EOF
		}
	}
	n = copy(p, data)
	t.pending = data[n:]
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the modem, e.g. a notification.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Writes returns the commands written so far, without terminators.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

type testDialer struct {
	t *TestTransport
}

func (d testDialer) Dial(context.Context) (Transport, error) {
	return d.t, nil
}
