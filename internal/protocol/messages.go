package protocol

import "bytes"

// Terminator ends every message in both directions.
var Terminator = []byte{0x07, 0x08}

// Server messages, terminator included.
var (
	ServerMove        = Message("102 MOVE")
	ServerTurnLeft    = Message("103 TURN LEFT")
	ServerTurnRight   = Message("104 TURN RIGHT")
	ServerPickUp      = Message("105 GET MESSAGE")
	ServerLogout      = Message("106 LOGOUT")
	ServerOK          = Message("200 OK")
	ServerLoginFailed = Message("300 LOGIN FAILED")
	ServerSyntaxError = Message("301 SYNTAX ERROR")
	ServerLogicError  = Message("302 LOGIC ERROR")
)

// Client notices that may arrive in place of any expected reply.
var (
	ClientRecharging = Message("RECHARGING")
	ClientFullPower  = Message("FULL POWER")
)

// Maximum message lengths, terminator included.
const (
	MaxUsernameLen     = 20
	MaxConfirmationLen = 7
	MaxPositionLen     = 12
	MaxPayloadLen      = 100
	MaxNoticeLen       = 12
)

// Message appends the terminator to body.
func Message(body string) []byte {
	out := make([]byte, 0, len(body)+len(Terminator))
	out = append(out, body...)
	return append(out, Terminator...)
}

// Body returns msg without its trailing terminator.
func Body(msg []byte) []byte {
	return bytes.TrimSuffix(msg, Terminator)
}

// IsNotice reports whether msg is an asynchronous client notice.
func IsNotice(msg []byte) bool {
	return bytes.Equal(msg, ClientRecharging) || bytes.Equal(msg, ClientFullPower)
}

// IsNoticePrefix reports whether pending could still grow into a client notice.
func IsNoticePrefix(pending []byte) bool {
	return bytes.HasPrefix(ClientRecharging, pending) || bytes.HasPrefix(ClientFullPower, pending)
}

// IsEmptyPayload reports whether a pick-up reply carries no hidden message.
func IsEmptyPayload(msg []byte) bool {
	return len(msg) == 0 || bytes.Equal(msg, Terminator)
}
