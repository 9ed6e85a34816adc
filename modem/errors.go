package modem

import "errors"

// Errors returned by New, Exec and Close. Wait and Send report failure
// through their boolean result and these values respectively.
var (
	// ErrNoDialer means the Config carries no Dialer to open the serial
	// line with.
	ErrNoDialer = errors.New("modem: no dialer configured")

	// ErrNotInitialized means the Dialer returned without a transport.
	ErrNotInitialized = errors.New("modem: not initialized")

	// ErrAlreadyClosed is returned by a second Close and by any command
	// issued after the first.
	ErrAlreadyClosed = errors.New("modem: already closed")

	// ErrSIMPinRequired means the SIM is locked and the Config has no PIN.
	// Callers may ask the operator for one and construct the Modem again.
	ErrSIMPinRequired = errors.New("modem: SIM PIN required")

	// ErrLineTooLong ends the read loop when a line overflows the scanner
	// buffer. Usually line noise or a wrong baud rate.
	ErrLineTooLong = errors.New("modem: response line too long")

	// ErrTimeout wraps the context error when a command sees no final
	// result in time.
	ErrTimeout = errors.New("modem: command timeout")
)
