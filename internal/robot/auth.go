package robot

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/danmuck/robotctl/internal/auth"
	"github.com/danmuck/robotctl/internal/protocol"
)

// Authenticate runs the login handshake and returns the robot's name.
func Authenticate(ch Channel, keys auth.KeyPair) (string, error) {
	msg, err := ch.Receive(protocol.MaxUsernameLen)
	if err != nil {
		return "", err
	}
	name := protocol.Body(msg)
	hash := auth.UsernameHash(name)
	ch.Send(protocol.Message(strconv.Itoa(keys.Challenge(hash))))

	confirmation, err := ch.Receive(protocol.MaxConfirmationLen)
	if err != nil {
		return "", err
	}
	switch err := keys.Verify(hash, protocol.Body(confirmation)); {
	case err == nil:
		ch.Send(protocol.ServerOK)
		return string(name), nil
	case errors.Is(err, auth.ErrUnauthorized):
		ch.Send(protocol.ServerLoginFailed)
		return "", fmt.Errorf("%w: robot %q", protocol.ErrLoginFailed, name)
	default:
		ch.Send(protocol.ServerSyntaxError)
		return "", fmt.Errorf("%w: %w", protocol.ErrSyntax, err)
	}
}
