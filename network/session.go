// Package network turns the modem's datagram socket commands into
// connect/read/write/disconnect operations on a single logical connection.
package network

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"i4.energy/across/nbsock/at"
	"i4.energy/across/nbsock/clock"
)

const (
	// MaxSlots is the number of sockets the modem can hold open. Valid
	// slots are 0 through MaxSlots-1.
	MaxSlots = 7
	// Unassigned is the slot of a session without an open socket.
	Unassigned = -1
	// InvalidLength is returned by Read for a negative length.
	InvalidLength = -1
)

// Field positions in the socket receive response
// <slot>,<available>,<a>,<b>,"<hex>",<remaining>.
const (
	recvFields         = 6
	recvFieldSlot      = 0
	recvFieldAvailable = 1
	recvFieldData      = 4
	recvFieldRemaining = 5
)

// Session is one datagram connection through the modem. The same Session
// can be connected and disconnected repeatedly.
//
// Every operation degrades to false, or to fewer bytes than asked for,
// rather than returning an error; the command channel's failures never
// reach the caller.
//
// A Session is not safe for concurrent use. It must be driven by the same
// goroutine that owns the CommandChannel.
type Session struct {
	cmd            CommandChannel
	clock          clockwork.Clock
	logger         *slog.Logger
	pollInterval   time.Duration
	listenPortBase uint16
	timeouts       Timeouts

	slot           int
	host           string
	port           uint16
	available      int
	lastListenPort uint16
	key            string

	lc lifecycle
}

// New creates a closed Session on cmd. Any notification filters already
// registered on cmd are dropped.
func New(cmd CommandChannel, opts ...Option) *Session {
	s := &Session{
		cmd:            cmd,
		clock:          clockwork.NewRealClock(),
		logger:         slog.New(slog.DiscardHandler),
		pollInterval:   DefaultPollInterval,
		listenPortBase: DefaultListenPortBase,
		timeouts:       DefaultTimeouts(),
		slot:           Unassigned,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastListenPort = s.listenPortBase - 1
	s.lc = newLifecycle(s)

	cmd.ClearFilters()
	return s
}

// Connect opens a socket for exchanging datagrams with host:port. It only
// succeeds from PhaseClosed.
func (s *Session) Connect(host string, port uint16) bool {
	req := &request{host: host, port: port}
	if !s.lc.dispatch(evConnect, req) {
		s.logger.Warn("connect refused", "phase", s.Phase())
		return false
	}
	return req.ok
}

// Disconnect closes the socket. It succeeds trivially when no socket is
// open. On failure the session stays open so the caller can retry.
func (s *Session) Disconnect() bool {
	req := &request{}
	if !s.lc.dispatch(evDisconnect, req) {
		s.logger.Warn("disconnect refused", "phase", s.Phase())
		return false
	}
	return req.ok
}

// open runs the socket create exchange.
func (s *Session) open(host string, port uint16) bool {
	listenPort := s.lastListenPort
	if validSlot(s.slot) {
		listenPort = s.listenPortBase + uint16(s.slot)
	}

	ok := s.cmd.Send(at.SocketCreate(listenPort)) == nil && s.cmd.Wait(at.ReplyAny, s.timeouts.Open)
	if ok {
		slot, err := strconv.Atoi(strings.TrimSpace(s.cmd.Response()))
		if err == nil && validSlot(slot) {
			s.slot = slot
			s.host = host
			s.port = port
			s.lastListenPort = listenPort
		} else {
			s.logger.Warn("unexpected socket number", "response", s.cmd.Response())
			ok = false
		}
	}
	if !ok {
		s.clear()
	}

	s.cmd.Wait(at.ReplyIgnore, s.timeouts.Drain)

	if ok {
		s.key = at.SocketMessage(s.slot)
		s.cmd.AddFilter(s.key, s.onNotification)
	}

	s.logger.Info("modem connect", "ok", ok, "host", host, "port", port, "slot", s.slot, "listen_port", listenPort)
	return ok
}

// shut runs the socket close exchange.
func (s *Session) shut() bool {
	ok := s.cmd.Send(at.SocketClose(s.slot)) == nil && s.cmd.Wait(at.ReplyOK, s.timeouts.Close)
	slot := s.slot
	if ok {
		s.clear()
	}

	s.cmd.Wait(at.ReplyIgnore, s.timeouts.Drain)

	s.logger.Info("modem disconnect", "ok", ok, "slot", slot)
	return ok
}

// clear forgets the connection and its notification filter. The pending
// byte count is zeroed too, so a later socket reusing the slot number does
// not inherit it.
func (s *Session) clear() {
	if s.key != "" {
		s.cmd.RemoveFilter(s.key)
	}
	s.slot = Unassigned
	s.host = ""
	s.port = 0
	s.key = ""
	s.available = 0
}

// Write sends p as one datagram and waits up to timeout for the modem to
// answer. It fails at once when no socket is open.
func (s *Session) Write(p []byte, timeout time.Duration) bool {
	if s.host == "" || s.port == 0 {
		return false
	}

	s.logger.Debug("write", "slot", s.slot, "len", len(p))
	ok := s.cmd.Send(at.SocketSend(s.slot, s.host, s.port, p)) == nil && s.cmd.Wait(at.ReplyAny, timeout)

	s.cmd.Wait(at.ReplyIgnore, s.timeouts.Drain)
	return ok
}

// Read collects up to length bytes into p, polling for incoming data until
// timeout. length is capped at len(p). It returns the number of bytes
// read, which may be short or zero on timeout, or InvalidLength if length
// is negative.
func (s *Session) Read(p []byte, length int, timeout time.Duration) int {
	if length < 0 {
		return InvalidLength
	}
	length = min(length, len(p))

	timer := clock.NewCountdown(s.clock, timeout)
	var data []byte

	// Try to read requested length
	data = s.receive(data, length, s.pollInterval)

	// Poll for notifications until enough bytes are announced
	pending := 0
	for s.pollInterval < timer.Remaining() && len(data) < length {
		s.cmd.Wait(at.ReplyIgnore, s.pollInterval)
		pending = s.available

		if pending == 0 {
			continue
		}
		if length <= pending+len(data) {
			break
		}
		data = s.receive(data, pending, s.pollInterval)
	}

	// Read remaining bytes
	if pending > 0 && len(data) < length {
		s.logger.Debug("datagram pending", "slot", s.slot, "available", pending)
		data = s.receive(data, length-len(data), min(timer.Remaining(), s.pollInterval))
	}

	s.logger.Debug("read", "slot", s.slot, "len", len(data))
	return copy(p, data)
}

// receive fetches up to n buffered bytes and appends them to data. A
// response that does not parse, or belongs to another slot, yields
// nothing.
func (s *Session) receive(data []byte, n int, timeout time.Duration) []byte {
	timer := clock.NewCountdown(s.clock, timeout)

	if s.cmd.Send(at.SocketReceive(s.slot, n)) == nil && s.cmd.Wait(at.ReplyAny, timeout) {
		data = s.parseReceive(data, s.cmd.Response(), n)
	}

	s.cmd.Wait(at.ReplyIgnore, timer.Remaining())
	return data
}

func (s *Session) parseReceive(data []byte, response string, n int) []byte {
	if strings.HasPrefix(response, at.OK) {
		return data
	}

	fields := strings.Split(response, ",")
	if len(fields) != recvFields {
		return data
	}
	if slot, err := strconv.Atoi(fields[recvFieldSlot]); err != nil || slot != s.slot {
		return data
	}
	avail, err := strconv.Atoi(fields[recvFieldAvailable])
	if err != nil || avail <= 0 || avail > n {
		return data
	}
	payload, err := at.DecodeHex(fields[recvFieldData])
	if err != nil || len(payload) > n {
		s.logger.Warn("malformed payload", "slot", s.slot, "error", err)
		return data
	}
	if remaining, err := strconv.Atoi(fields[recvFieldRemaining]); err == nil && remaining >= 0 {
		s.available = remaining
	}
	return append(data, payload...)
}

// onNotification takes the pending byte count from a socket message
// notification such as "+NSONMI: 3,120".
func (s *Session) onNotification(line string) {
	_, count, ok := strings.Cut(line, ",")
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n < 0 {
		return
	}
	s.available = n
	s.logger.Debug("available bytes", "slot", s.slot, "available", n)
}

// Slot returns the modem's socket number, or Unassigned.
func (s *Session) Slot() int { return s.slot }

// Host returns the remote host, empty when closed.
func (s *Session) Host() string { return s.host }

// Port returns the remote port, zero when closed.
func (s *Session) Port() uint16 { return s.port }

// Available returns the byte count last announced by the modem.
func (s *Session) Available() int { return s.available }

// ListenPort returns the local port of the current or last socket.
func (s *Session) ListenPort() uint16 { return s.lastListenPort }

// NotificationKey returns the notification prefix registered for the open
// socket, empty when closed.
func (s *Session) NotificationKey() string { return s.key }

// Phase returns where the session is in its lifecycle.
func (s *Session) Phase() Phase { return s.lc.phase() }

func validSlot(slot int) bool {
	return slot >= 0 && slot < MaxSlots
}
