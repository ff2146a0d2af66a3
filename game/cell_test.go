package game

import "testing"

func TestCellAdd_ChangesOneAxisByOne(t *testing.T) {
	cells := []Cell{{0, 0}, {3, 7}, {-1, 5}, {10, -2}}
	for _, c := range cells {
		seen := make(map[Cell]bool, NumMoves)
		for _, m := range Moves {
			n := c.Add(m)
			dx := int(n.X) - int(c.X)
			dy := int(n.Y) - int(c.Y)
			if dx*dx+dy*dy != 1 {
				t.Fatalf("%v + %v = %v: want exactly one axis changed by 1", c, m, n)
			}
			seen[n] = true
		}
		if len(seen) != NumMoves {
			t.Fatalf("%v: four moves gave %d distinct cells", c, len(seen))
		}
	}
}

func TestCellAdd_Directions(t *testing.T) {
	cases := []struct {
		from Cell
		move Move
		want Cell
	}{
		{Cell{0, 0}, MoveUp, Cell{0, 1}},
		{Cell{0, 0}, MoveDown, Cell{0, -1}},
		{Cell{0, 0}, MoveLeft, Cell{-1, 0}},
		{Cell{0, 0}, MoveRight, Cell{1, 0}},
		{Cell{3, 7}, MoveUp, Cell{3, 8}},
		{Cell{3, 7}, MoveDown, Cell{3, 6}},
		{Cell{3, 7}, MoveLeft, Cell{2, 7}},
		{Cell{3, 7}, MoveRight, Cell{4, 7}},
	}
	for _, tc := range cases {
		if got := tc.from.Add(tc.move); got != tc.want {
			t.Errorf("%v + %v = %v want %v", tc.from, tc.move, got, tc.want)
		}
	}
}

func TestMoveStringRoundTrip(t *testing.T) {
	for _, m := range Moves {
		got, err := ParseMove(m.String())
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", m.String(), err)
		}
		if got != m {
			t.Fatalf("ParseMove(%q)=%v want %v", m.String(), got, m)
		}
	}
	if _, err := ParseMove("sideways"); err == nil {
		t.Fatalf("expected error for unknown move")
	}
}

func TestMoveBetween(t *testing.T) {
	m, ok := MoveBetween(Cell{2, 2}, Cell{2, 3})
	if !ok || m != MoveUp {
		t.Fatalf("MoveBetween up = %v,%v", m, ok)
	}
	if _, ok := MoveBetween(Cell{2, 2}, Cell{4, 2}); ok {
		t.Fatalf("non-adjacent cells reported a move")
	}
}

func TestInBounds(t *testing.T) {
	const w, h = 7, 5
	in := []Cell{{0, 0}, {w - 1, h - 1}, {3, 2}}
	out := []Cell{{w, 0}, {0, h}, {-1, 0}, {0, -1}}
	for _, c := range in {
		if !c.InBounds(w, h) {
			t.Errorf("%v should be in bounds", c)
		}
	}
	for _, c := range out {
		if c.InBounds(w, h) {
			t.Errorf("%v should be out of bounds", c)
		}
	}
}
