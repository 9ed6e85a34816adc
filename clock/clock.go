// Package clock measures time budgets for command and read timeouts on a
// clockwork.Clock, so polling loops can be driven by a fake clock in tests.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown measures the time left from a fixed budget.
type Countdown struct {
	clock    clockwork.Clock
	deadline time.Time
}

// NewCountdown starts a countdown of d on c.
func NewCountdown(c clockwork.Clock, d time.Duration) Countdown {
	return Countdown{clock: c, deadline: c.Now().Add(d)}
}

// Remaining returns the time left, never negative.
func (c Countdown) Remaining() time.Duration {
	return max(c.deadline.Sub(c.clock.Now()), 0)
}

// Expired reports whether the budget is used up.
func (c Countdown) Expired() bool {
	return c.Remaining() == 0
}
