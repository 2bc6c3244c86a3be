package grid

import "fmt"

// ZoneRadius bounds the target zone [-2,2] x [-2,2].
const ZoneRadius = 2

// Corners of the zone in tie-break order.
var Corners = [4]Position{
	{X: -ZoneRadius, Y: -ZoneRadius},
	{X: -ZoneRadius, Y: ZoneRadius},
	{X: ZoneRadius, Y: -ZoneRadius},
	{X: ZoneRadius, Y: ZoneRadius},
}

type Position struct {
	X int
	Y int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Position) Distance(q Position) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

// InZone reports whether p lies inside the target zone.
func (p Position) InZone() bool {
	return abs(p.X) <= ZoneRadius && abs(p.Y) <= ZoneRadius
}

// Neighbors returns the four unit moves in tie-break order.
func (p Position) Neighbors() [4]Position {
	return [4]Position{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
}

// Nearest returns the first choice with minimal Manhattan distance to target.
func Nearest(choices []Position, target Position) Position {
	best := choices[0]
	bestDist := best.Distance(target)
	for _, c := range choices[1:] {
		if d := c.Distance(target); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
