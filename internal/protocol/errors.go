package protocol

import (
	"errors"
	"io"
	"net"
)

var (
	ErrTimeout     = errors.New("protocol: timeout")
	ErrSyntax      = errors.New("protocol: syntax error")
	ErrLogic       = errors.New("protocol: logic error")
	ErrLoginFailed = errors.New("protocol: login failed")
)

// Error classes reported by Classify.
const (
	ClassNone        = "none"
	ClassTimeout     = "timeout"
	ClassSyntax      = "syntax"
	ClassLogic       = "logic"
	ClassLoginFailed = "login_failed"
	ClassClosed      = "closed"
	ClassIO          = "io"
)

// Classify maps a session error to a short label for logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrTimeout):
		return ClassTimeout
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF):
		return ClassClosed
	case errors.Is(err, ErrSyntax):
		return ClassSyntax
	case errors.Is(err, ErrLogic):
		return ClassLogic
	case errors.Is(err, ErrLoginFailed):
		return ClassLoginFailed
	default:
		return ClassIO
	}
}
