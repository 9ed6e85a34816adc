package network

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultListenPortBase is the local port of slot 0. Slot n listens on
	// base+n.
	DefaultListenPortBase uint16 = 16666
	// MinListenPortBase and MaxListenPortBase bound the base so that both
	// base-1 and base+MaxSlots-1 are valid ports.
	MinListenPortBase uint16 = 2
	MaxListenPortBase uint16 = 65535 - MaxSlots + 1
	// DefaultPollInterval is how long Read drains the channel between two
	// looks at the pending byte count.
	DefaultPollInterval = 100 * time.Millisecond
)

// Timeouts bound the fixed-length waits of the socket commands.
type Timeouts struct {
	// Open bounds the answer to the socket create command.
	Open time.Duration
	// Close bounds the OK to the socket close command. It is the longest
	// wait: a leaked socket costs more than a slow close.
	Close time.Duration
	// Drain is spent discarding trailing output after each command.
	Drain time.Duration
}

// DefaultTimeouts returns the waits used unless WithTimeouts overrides them.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Open:  3 * time.Second,
		Close: 10 * time.Second,
		Drain: time.Second,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source of the read timer.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.pollInterval = d
	}
}

// WithListenPortBase overrides DefaultListenPortBase. A base outside
// [MinListenPortBase, MaxListenPortBase] is ignored.
func WithListenPortBase(base uint16) Option {
	return func(s *Session) {
		if !ValidListenPortBase(base) {
			s.logger.Warn("listen port base out of range, keeping default", "base", base, "default", s.listenPortBase)
			return
		}
		s.listenPortBase = base
	}
}

// ValidListenPortBase reports whether every port derived from base fits
// in 1..65535.
func ValidListenPortBase(base uint16) bool {
	return base >= MinListenPortBase && base <= MaxListenPortBase
}

// WithTimeouts overrides DefaultTimeouts. Zero fields keep their default.
func WithTimeouts(t Timeouts) Option {
	return func(s *Session) {
		if t.Open > 0 {
			s.timeouts.Open = t.Open
		}
		if t.Close > 0 {
			s.timeouts.Close = t.Close
		}
		if t.Drain > 0 {
			s.timeouts.Drain = t.Drain
		}
	}
}
