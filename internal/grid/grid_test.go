package grid

import (
	"slices"
	"testing"
)

func TestRotateRightCycles(t *testing.T) {
	for _, d := range Directions {
		got := d
		for range 4 {
			got = got.RotateRight()
		}
		if got != d {
			t.Fatalf("four right turns from %s ended at %s", d, got)
		}
		if d.RotateRight().RotateLeft() != d {
			t.Fatalf("right then left from %s did not cancel", d)
		}
	}
	if Up.RotateRight() != Right || Left.RotateRight() != Up {
		t.Fatalf("unexpected rotation order")
	}
}

func TestTurnsRightAtMostThree(t *testing.T) {
	for _, from := range Directions {
		for _, to := range Directions {
			n := from.TurnsRight(to)
			if n < 0 || n > 3 {
				t.Fatalf("%s->%s needs %d turns", from, to, n)
			}
			d := from
			for range n {
				d = d.RotateRight()
			}
			if d != to {
				t.Fatalf("%s rotated %d times is %s, want %s", from, n, d, to)
			}
		}
	}
}

func TestDirectionValid(t *testing.T) {
	for _, d := range Directions {
		if !d.Valid() {
			t.Fatalf("%s should be valid", d)
		}
	}
	if Direction(4).Valid() {
		t.Fatalf("Direction(4) should be invalid")
	}
	if Direction(9).String() != "Direction(9)" {
		t.Fatalf("unexpected string: %s", Direction(9))
	}
}

func TestInferDirection(t *testing.T) {
	origin := Position{}
	tests := []struct {
		after Position
		want  Direction
	}{
		{after: Position{X: 1}, want: Right},
		{after: Position{X: -1}, want: Left},
		{after: Position{Y: 1}, want: Up},
		{after: Position{Y: -1}, want: Down},
	}
	for _, tc := range tests {
		got, ok := InferDirection(origin, tc.after)
		if !ok || got != tc.want {
			t.Fatalf("%s->%s got=%s ok=%v want=%s", origin, tc.after, got, ok, tc.want)
		}
	}
	if _, ok := InferDirection(origin, origin); ok {
		t.Fatalf("no movement must not infer a direction")
	}
}

func TestHeading(t *testing.T) {
	from := Position{X: 3, Y: -1}
	for _, d := range Directions {
		got, ok := Heading(from, from.Add(d.Step()))
		if !ok || got != d {
			t.Fatalf("heading for %s got=%s ok=%v", d, got, ok)
		}
	}
	if _, ok := Heading(from, Position{X: 5, Y: -1}); ok {
		t.Fatalf("non-adjacent cells must not have a heading")
	}
}

func TestPlanFromCornerCoversZone(t *testing.T) {
	for _, corner := range Corners {
		path := slices.Collect(Plan(corner.X, corner.Y))
		if len(path) != 25 {
			t.Fatalf("plan from %s has %d cells", corner, len(path))
		}
		if path[0] != corner {
			t.Fatalf("plan from %s starts at %s", corner, path[0])
		}
		assertSweep(t, path)
	}
}

func TestPlanFromFarCellApproachesNearestCorner(t *testing.T) {
	path := slices.Collect(Plan(5, -5))
	target := Position{X: 2, Y: -2}
	if len(path) != 6+25 {
		t.Fatalf("expected 6 approach cells and 25 sweep cells, got %d", len(path))
	}
	prev := Position{X: 5, Y: -5}
	for i, p := range path[:6] {
		if p.Distance(target) >= prev.Distance(target) {
			t.Fatalf("approach step %d not decreasing: %s -> %s", i, prev, p)
		}
		if prev.Distance(p) != 1 {
			t.Fatalf("approach step %d not adjacent: %s -> %s", i, prev, p)
		}
		prev = p
	}
	if path[5] != target {
		t.Fatalf("approach ended at %s, want %s", path[5], target)
	}
	sweep := path[6:]
	if sweep[0] != target {
		t.Fatalf("sweep starts at %s, want %s", sweep[0], target)
	}
	assertSweep(t, sweep)
}

func TestPlanIsRestartableAndStoppable(t *testing.T) {
	seq := Plan(-7, 1)
	a := slices.Collect(seq)
	b := slices.Collect(seq)
	if !slices.Equal(a, b) {
		t.Fatalf("plan is not deterministic")
	}
	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("early stop failed")
	}
}

func TestPlanFromEveryStartCoversZoneContinuously(t *testing.T) {
	for x := -6; x <= 6; x++ {
		for y := -6; y <= 6; y++ {
			start := Position{X: x, Y: y}
			path := slices.Collect(Plan(x, y))
			prev := start
			seen := make(map[Position]bool)
			for i, p := range path {
				if prev.Distance(p) > 1 {
					t.Fatalf("start %s step %d jumps %s -> %s", start, i, prev, p)
				}
				if p.InZone() {
					seen[p] = true
				}
				prev = p
			}
			if len(seen) != 25 {
				t.Fatalf("start %s covers %d zone cells", start, len(seen))
			}
		}
	}
}

// assertSweep checks 25 distinct zone cells joined by unit steps.
func assertSweep(t *testing.T, path []Position) {
	t.Helper()
	seen := make(map[Position]bool)
	for i, p := range path {
		if !p.InZone() {
			t.Fatalf("cell %s outside zone", p)
		}
		if seen[p] {
			t.Fatalf("cell %s repeated", p)
		}
		seen[p] = true
		if i > 0 && path[i-1].Distance(p) != 1 {
			t.Fatalf("step %d not adjacent: %s -> %s", i, path[i-1], p)
		}
	}
	if len(seen) != 25 {
		t.Fatalf("sweep covers %d cells", len(seen))
	}
}
