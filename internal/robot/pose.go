package robot

import (
	"github.com/danmuck/robotctl/internal/grid"
	"github.com/danmuck/robotctl/internal/protocol"
)

// Pose is the believed position and heading of a robot.
type Pose struct {
	Position  grid.Position
	Direction grid.Direction
}

// EstimatePose discovers where the robot stands and which way it faces.
//
// TURN LEFT reports the position, TURN RIGHT restores the heading, then MOVE
// is repeated until the robot actually moves. maxIdleMoves bounds ignored
// MOVE commands; zero means unbounded.
func EstimatePose(ch Channel, maxIdleMoves int) (Pose, error) {
	initial, err := command(ch, protocol.ServerTurnLeft)
	if err != nil {
		return Pose{}, err
	}
	if err := turnRight(ch); err != nil {
		return Pose{}, err
	}

	pos := initial
	for idle := 0; pos == initial; idle++ {
		if maxIdleMoves > 0 && idle >= maxIdleMoves {
			return Pose{}, logicError(ch, "robot ignored %d moves", idle)
		}
		if pos, err = command(ch, protocol.ServerMove); err != nil {
			return Pose{}, err
		}
	}

	dir, _ := grid.InferDirection(initial, pos)
	return Pose{Position: pos, Direction: dir}, nil
}
