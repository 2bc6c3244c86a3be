package grid

import "iter"

// Plan yields the cells to visit from (x, y): a greedy walk to the nearest
// zone corner, then a column-by-column zig-zag over all 25 zone cells.
//
// The sequence is finite, pure and may be ranged over any number of times.
func Plan(x, y int) iter.Seq[Position] {
	return func(yield func(Position) bool) {
		cur := Position{X: x, Y: y}
		if abs(x) != ZoneRadius || abs(y) != ZoneRadius {
			corner := Nearest(Corners[:], cur)
			for cur != corner {
				next := cur.Neighbors()
				cur = Nearest(next[:], corner)
				if !yield(cur) {
					return
				}
			}
		}

		start, end := cur.Y, -cur.Y
		colStep := -sign(cur.X)
		for col := cur.X; ; col += colStep {
			rowStep := sign(end - start)
			for row := start; ; row += rowStep {
				if !yield(Position{X: col, Y: row}) {
					return
				}
				if row == end {
					break
				}
			}
			if col == -cur.X {
				return
			}
			start, end = end, start
		}
	}
}
