package at

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Socket commands of the u-blox SARA-N2 datagram dialect. Templates carry
// no line terminator; the command channel appends it on send.
const (
	socketCreate  = `AT+NSOCR="DGRAM",17,%d`
	socketReceive = `AT+NSORF=%d,%d`
	socketSend    = `AT+NSOST=%d,"%s",%d,%d,"%s"`
	socketClose   = `AT+NSOCL=%d`
	socketMessage = UrcSocketMessage + " %d,"
)

// SocketCreate opens a UDP socket bound to listenPort. The modem answers
// with the allocated socket number.
func SocketCreate(listenPort uint16) string {
	return fmt.Sprintf(socketCreate, listenPort)
}

// SocketReceive asks for up to maxLen buffered bytes of socket slot.
func SocketReceive(slot, maxLen int) string {
	return fmt.Sprintf(socketReceive, slot, maxLen)
}

// SocketSend sends payload as one datagram to host:port. The payload is
// hex encoded and the decoded length is announced ahead of it.
func SocketSend(slot int, host string, port uint16, payload []byte) string {
	return fmt.Sprintf(socketSend, slot, host, port, len(payload), EncodeHex(payload))
}

// SocketClose releases socket slot.
func SocketClose(slot int) string {
	return fmt.Sprintf(socketClose, slot)
}

// SocketMessage is the prefix of the +NSONMI notification announcing
// pending bytes on slot.
func SocketMessage(slot int) string {
	return fmt.Sprintf(socketMessage, slot)
}

// EncodeHex renders p as upper-case ASCII hex, the form the modem echoes
// back in +NSORF responses.
func EncodeHex(p []byte) string {
	return strings.ToUpper(hex.EncodeToString(p))
}

// DecodeHex parses hex text of either case, ignoring surrounding quotes.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.Trim(s, `"`))
}
