package modem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/nbsock/at"
	"i4.energy/across/nbsock/urc"
)

const (
	// lineBuffer is how many tokenized lines may queue up between two
	// drains of the command channel.
	lineBuffer = 64
	// maxLineLength bounds one response line. A full 512 byte datagram
	// encodes to 1024 hex characters plus framing.
	maxLineLength = 4096
)

// Modem is an AT command channel to an NB-IoT modem such as the u-blox
// SARA-N2.
//
// The channel is cooperative: a single reader goroutine tokenizes the
// transport into a line queue, and every consumer operation (Send, Wait,
// Exec) runs on the caller's goroutine. Notification lines are routed to
// registered filters only while the caller drains the queue in Wait or
// Exec, so a handler's side effects are visible to the caller as soon as
// that drain returns.
//
// A Modem is owned by one goroutine at a time; it does no locking.
type Modem struct {
	// transport provides the physical connection to the modem (serial, TCP, etc.)
	transport Transport
	// config contains the modem configuration settings
	config Config
	logger *slog.Logger
	// closed indicates if the modem has been shut down
	closed bool

	// lines receives tokenized response lines from the reader goroutine
	lines chan string
	// stop tells the reader goroutine to quit
	stop chan struct{}
	// readErr is set by the reader goroutine before lines is closed
	readErr error

	// response is the text of the last completed response
	response string
	// filters routes unsolicited lines to their handlers
	filters urc.Registry
}

// PollConfig defines configuration for polling operations like waiting for SIM readiness.
type PollConfig struct {
	// Interval is the time between polling attempts
	Interval time.Duration
	// Timeout is the maximum time to wait for the condition
	Timeout time.Duration
	// MaxRetries is the maximum number of polling attempts
	MaxRetries int
}

// New creates a new Modem instance with the given configuration.
// It establishes the transport connection, starts the reader and
// runs the initialization sequence.
//
// Returns an error if the transport connection or modem initialization
// fails.
func New(ctx context.Context, config Config) (*Modem, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	m := &Modem{
		transport: transport,
		config:    config,
		logger:    config.logger,
		lines:     make(chan string, lineBuffer),
		stop:      make(chan struct{}),
	}
	go m.readLoop()

	initCtx, cancel := context.WithTimeout(ctx, config.initTimeout)
	defer cancel()

	if err := m.init(initCtx); err != nil {
		m.Close()
		return nil, fmt.Errorf("initialize modem: %w", err)
	}

	return m, nil
}

// readLoop is the only reader of the transport. It exits on read error,
// EOF or Close.
func (m *Modem) readLoop() {
	defer close(m.lines)

	scanner := bufio.NewScanner(m.transport)
	scanner.Buffer(make([]byte, 0, 1024), maxLineLength)
	scanner.Split(at.Splitter)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case m.lines <- line:
		case <-m.stop:
			return
		}
	}

	err := scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		err = ErrLineTooLong
	}
	m.readErr = err
}

// Close shuts down the modem and releases all resources.
// After calling Close(), the modem cannot be reused.
func (m *Modem) Close() error {
	if m.closed {
		return ErrAlreadyClosed
	}
	m.closed = true
	close(m.stop)
	return m.transport.Close()
}

// Send writes one command line to the modem. It does not wait for the
// response; pair it with Wait.
func (m *Modem) Send(cmd string) error {
	if m.closed {
		return ErrAlreadyClosed
	}

	m.response = ""
	wire := strings.TrimSpace(cmd) + "\r"
	if _, err := m.transport.Write([]byte(wire)); err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}
	m.logger.Debug("tx", "cmd", cmd)
	return nil
}

// Wait drains response lines until one satisfies reply or timeout
// elapses:
//
//   - at.ReplyAny returns true on the first response line, which becomes
//     the Response.
//   - at.ReplyOK collects lines up to a final result and returns true only
//     if it is OK.
//   - at.ReplyIgnore discards everything until the timeout. Its result is
//     only whether anything was discarded.
//
// Notifications met on the way are dispatched to the registered filters.
func (m *Modem) Wait(reply at.Reply, timeout time.Duration) bool {
	if m.closed {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var lines []string
	for {
		line, err := m.next(ctx)
		if err != nil {
			if reply == at.ReplyIgnore {
				return len(lines) > 0
			}
			m.logger.Debug("wait failed", "reply", reply, "timeout", timeout, "error", err)
			return false
		}

		switch reply {
		case at.ReplyAny:
			m.response = line
			return true
		case at.ReplyOK:
			lines = append(lines, line)
			if at.Classify(line) == at.TypeFinal {
				m.response = strings.Join(lines, "\n")
				return line == at.OK
			}
		default:
			lines = append(lines, line)
			m.logger.Debug("discarded", "line", line)
		}
	}
}

// Response returns the text of the last response completed by Wait or
// Exec. Multi-line responses are joined with "\n".
func (m *Modem) Response() string {
	return m.response
}

// AddFilter routes notifications starting with pattern to h, replacing
// any handler already registered for the exact pattern.
func (m *Modem) AddFilter(pattern string, h urc.Handler) {
	m.filters.Register(pattern, h)
}

// RemoveFilter drops the filter registered for exactly pattern.
func (m *Modem) RemoveFilter(pattern string) {
	m.filters.Unregister(pattern)
}

// ClearFilters drops every notification filter.
func (m *Modem) ClearFilters() {
	m.filters.Reset()
}

// Filters lists the registered notification patterns.
func (m *Modem) Filters() []string {
	return m.filters.Patterns()
}

// Exec sends cmd and collects the response up to its final result. If ctx
// carries no deadline the configured AT timeout applies.
//
// A final result other than OK is returned as an error holding the
// result text.
func (m *Modem) Exec(ctx context.Context, cmd string) (string, error) {
	if m.closed {
		return "", ErrAlreadyClosed
	}

	// Apply per-command timeout if context has none
	if _, ok := ctx.Deadline(); !ok && m.config.atTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.atTimeout)
		defer cancel()
	}

	if err := m.Send(cmd); err != nil {
		return "", err
	}

	var lines []string
	for {
		line, err := m.next(ctx)
		if err != nil {
			return strings.Join(lines, "\n"), err
		}

		lines = append(lines, line)
		if at.Classify(line) != at.TypeFinal {
			continue
		}

		response := strings.Join(lines, "\n")
		m.response = response
		if line == at.OK {
			return response, nil
		}
		return response, errors.New(line)
	}
}

// next returns the next line that is not a notification. Notifications
// are dispatched to their filters; unsolicited lines nobody registered
// for are dropped.
func (m *Modem) next(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())

		case line, ok := <-m.lines:
			if !ok {
				if m.readErr != nil {
					return "", fmt.Errorf("read error: %w", m.readErr)
				}
				return "", io.EOF
			}

			if m.filters.Dispatch(line) {
				m.logger.Debug("urc", "line", line)
				continue
			}
			if at.Classify(line) == at.TypeURC {
				m.logger.Debug("unhandled urc", "line", line)
				continue
			}
			m.logger.Debug("rx", "line", line)
			return line, nil
		}
	}
}

// init performs the initial setup sequence for the modem hardware.
// This method is called during New() and must complete successfully
// before the modem can be used.
func (m *Modem) init(ctx context.Context) error {
	// 1. Wake-up / sanity check
	if err := m.expectOk(ctx, at.CmdAt); err != nil {
		return fmt.Errorf("modem not responding: %w", err)
	}

	if err := m.expectOk(ctx, at.CmdEchoOff); err != nil {
		return fmt.Errorf("could not disable echo: %w", err)
	}

	if err := m.expectOk(ctx, at.CmdVerboseErrors); err != nil {
		return fmt.Errorf("could not enable verbose errors: %w", err)
	}

	// 4. Check SIM status
	simStatus, err := m.Exec(ctx, at.CmdSimStatus)
	if err != nil {
		return fmt.Errorf("query SIM status: %w", err)
	}

	switch {
	case strings.Contains(simStatus, at.SimReady):
		// OK

	case strings.Contains(simStatus, at.SimPin):
		if m.config.simPIN == "" {
			return ErrSIMPinRequired
		}
		if err := m.expectOk(ctx, fmt.Sprintf(`AT+CPIN="%s"`, m.config.simPIN)); err != nil {
			return fmt.Errorf("enter SIM PIN: %w", err)
		}

		// Wait until SIM becomes ready
		if err := m.waitForSIMReady(ctx, PollConfig{}); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported SIM state: %q", simStatus)
	}

	m.logger.Info("modem initialized")
	return nil
}

// expectOk executes an AT command and validates that the response
// contains "OK".
func (m *Modem) expectOk(ctx context.Context, cmd string) error {
	resp, err := m.Exec(ctx, cmd)
	if err != nil {
		return err
	}
	if !strings.Contains(resp, at.OK) {
		return fmt.Errorf("unexpected response: %q", resp)
	}
	return nil
}

// waitForSIMReady polls the SIM card status until it reports ready state.
// This is necessary after entering a SIM PIN, as the SIM card needs time
// to authenticate and become operational.
func (m *Modem) waitForSIMReady(ctx context.Context, config PollConfig) error {
	var (
		pollInterval = config.Interval
		timeout      = config.Timeout
		maxRetries   = config.MaxRetries
	)

	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = int(timeout / pollInterval)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	retries := 0

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("SIM not ready: %w", ctx.Err())
		case <-ticker.C:
			retries++
			if retries > maxRetries {
				return fmt.Errorf("SIM not ready after %d retries", maxRetries)
			}
			resp, err := m.Exec(ctx, at.CmdSimStatus)
			if err != nil {
				// Fail fast on critical errors
				if errors.Is(err, ErrAlreadyClosed) || errors.Is(err, io.EOF) {
					return fmt.Errorf("SIM status check failed: %w", err)
				}
				continue
			}
			if strings.Contains(resp, at.SimReady) {
				return nil
			}
		}
	}
}
