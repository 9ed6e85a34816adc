package at

const (
	// Terminal Control
	CRLF = "\r\n"

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcSocketMessage = "+NSONMI:"
	UrcRegistration  = "+CEREG:"
	UrcSignalling    = "+CSCON:"
	UrcPowerSaving   = "+NPSMR:"
	UrcFirmware      = "+UFOTAS:"

	// Setup commands
	CmdAt            = "AT"
	CmdEchoOff       = "ATE0"
	CmdVerboseErrors = "AT+CMEE=1"
	CmdSimStatus     = "AT+CPIN?"

	SimReady = "READY"
	SimPin   = "SIM PIN"
)

type ResponseType int

const (
	TypeFinal ResponseType = iota // OK, ERROR
	TypeURC                       // Asynchronous notifications
	TypeData                      // Intermediate command output (+CSQ: ...)
)

// Reply selects which responses satisfy a wait on the command channel.
type Reply int

const (
	ReplyAny    Reply = iota // first response line of any kind
	ReplyOK                  // an explicit OK final result
	ReplyIgnore              // drain until timeout, result is discarded
)

func (r Reply) String() string {
	switch r {
	case ReplyAny:
		return "any"
	case ReplyOK:
		return "ok"
	case ReplyIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}
