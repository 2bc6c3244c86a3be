package robot

import (
	"fmt"

	"github.com/danmuck/robotctl/internal/grid"
	"github.com/danmuck/robotctl/internal/protocol"
)

// Channel is the half-duplex message exchange with one robot.
type Channel interface {
	Send(msg []byte)
	Receive(maxLen int) ([]byte, error)
}

// Conn is a Channel the session owns and must close.
type Conn interface {
	Channel
	Close() error
}

// command sends cmd and parses the robot's position reply.
func command(ch Channel, cmd []byte) (grid.Position, error) {
	ch.Send(cmd)
	msg, err := ch.Receive(protocol.MaxPositionLen)
	if err != nil {
		return grid.Position{}, err
	}
	x, y, err := protocol.ParsePosition(msg)
	if err != nil {
		ch.Send(protocol.ServerSyntaxError)
		return grid.Position{}, err
	}
	return grid.Position{X: x, Y: y}, nil
}

// turnRight sends TURN RIGHT; its reply only completes the exchange.
func turnRight(ch Channel) error {
	ch.Send(protocol.ServerTurnRight)
	_, err := ch.Receive(protocol.MaxPositionLen)
	return err
}

func logicError(ch Channel, format string, args ...any) error {
	ch.Send(protocol.ServerLogicError)
	return fmt.Errorf("%w: "+format, append([]any{protocol.ErrLogic}, args...)...)
}
