package network

import (
	"time"

	"i4.energy/across/nbsock/at"
	"i4.energy/across/nbsock/urc"
)

//go:generate go tool mockgen -source=channel.go -destination=mock_channel.go -package=network

// CommandChannel is the synchronous request/response path to the modem.
// *modem.Modem implements it.
type CommandChannel interface {
	// Send transmits one command line.
	Send(cmd string) error
	// Wait drains the channel until a response of class reply arrives or
	// timeout elapses. Notifications are dispatched while it drains.
	Wait(reply at.Reply, timeout time.Duration) bool
	// Response returns the text of the last response.
	Response() string
	// AddFilter routes notifications starting with pattern to h.
	AddFilter(pattern string, h urc.Handler)
	// RemoveFilter drops the filter registered for exactly pattern.
	RemoveFilter(pattern string)
	// ClearFilters drops every filter.
	ClearFilters()
}
