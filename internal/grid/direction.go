package grid

import "fmt"

// Direction is a robot heading. Rotating right cycles Up, Right, Down, Left.
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists every heading in rotation order.
var Directions = [4]Direction{Up, Right, Down, Left}

func (d Direction) Valid() bool {
	return d <= Left
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Right:
		return "RIGHT"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

func (d Direction) RotateRight() Direction {
	return (d + 1) % 4
}

func (d Direction) RotateLeft() Direction {
	return (d + 3) % 4
}

// Step is the unit offset of one forward move.
func (d Direction) Step() Position {
	switch d {
	case Up:
		return Position{Y: 1}
	case Right:
		return Position{X: 1}
	case Down:
		return Position{Y: -1}
	default:
		return Position{X: -1}
	}
}

// TurnsRight counts right turns needed to face to from d; always 0..3.
func (d Direction) TurnsRight(to Direction) int {
	return int((to + 4 - d) % 4)
}

// Heading returns the direction of an adjacent step from -> to.
func Heading(from, to Position) (Direction, bool) {
	for _, d := range Directions {
		if from.Add(d.Step()) == to {
			return d, true
		}
	}
	return Up, false
}

// InferDirection derives a heading from a forward move, x axis first.
func InferDirection(before, after Position) (Direction, bool) {
	dx, dy := after.X-before.X, after.Y-before.Y
	switch {
	case dx > 0:
		return Right, true
	case dx < 0:
		return Left, true
	case dy > 0:
		return Up, true
	case dy < 0:
		return Down, true
	default:
		return Up, false
	}
}
