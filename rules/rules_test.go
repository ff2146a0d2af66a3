package rules

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brensch/snekplan/game"
)

func agent(cells ...[2]int) game.Agent {
	out := make([]game.Cell, len(cells))
	for i, c := range cells {
		out[i] = game.Cell{X: int8(c[0]), Y: int8(c[1])}
	}
	return game.NewAgent(out...)
}

func dumpSnapshot(s *game.Snapshot) string {
	if s == nil {
		return "<nil snapshot>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Size=%dx%d Opponents=%d Food=%d\n", s.Width, s.Height, len(s.Opponents), s.Food.Len())
	fmt.Fprintf(&b, "You Len=%d Body:", s.You.Len())
	for _, c := range s.You.Cells() {
		fmt.Fprintf(&b, " %v", c)
	}
	b.WriteString("\n")
	for i, o := range s.Opponents {
		fmt.Fprintf(&b, "Opp%d Len=%d Body:", i, o.Len())
		for _, c := range o.Cells() {
			fmt.Fprintf(&b, " %v", c)
		}
		b.WriteString("\n")
	}

	if s.Width <= 0 || s.Height <= 0 || s.Width > 40 || s.Height > 40 {
		return b.String()
	}
	grid := make([][]byte, s.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", s.Width))
	}
	put := func(c game.Cell, ch byte) {
		if c.InBounds(s.Width, s.Height) {
			grid[c.Y][c.X] = ch
		}
	}
	for _, f := range s.Food.Cells() {
		put(f, 'F')
	}
	for i, o := range s.Opponents {
		for j, c := range o.Cells() {
			ch := byte('a' + i)
			if j == 0 {
				ch -= 32
			}
			put(c, ch)
		}
	}
	for j, c := range s.You.Cells() {
		if j == 0 {
			put(c, 'Y')
		} else {
			put(c, 'y')
		}
	}
	b.WriteString("Board:\n")
	for y := s.Height - 1; y >= 0; y-- {
		b.Write(grid[y])
		b.WriteByte('\n')
	}
	return b.String()
}

func logTransition(t *testing.T, name string, before, after *game.Snapshot) {
	t.Helper()
	t.Logf("=== %s ===\nBefore:\n%sAfter:\n%s", name, dumpSnapshot(before), dumpSnapshot(after))
}

func TestJointMoves_CountAndCoverage(t *testing.T) {
	for n := 0; n <= 5; n++ {
		want := 1
		for i := 0; i < n; i++ {
			want *= 4
		}
		if got := JointMoveCount(n); got != want {
			t.Fatalf("JointMoveCount(%d)=%d want %d", n, got, want)
		}

		seen := make(map[string]bool, want)
		count := 0
		for idx, moves := range JointMoves(n) {
			if idx != count {
				t.Fatalf("n=%d: index %d yielded at position %d", n, idx, count)
			}
			if len(moves) != n {
				t.Fatalf("n=%d: combination has %d moves", n, len(moves))
			}
			seen[fmt.Sprint(moves)] = true
			count++
		}
		if count != want || len(seen) != want {
			t.Fatalf("n=%d: yielded %d combinations, %d distinct, want %d", n, count, len(seen), want)
		}
	}
}

func TestJointMoves_ZeroOpponentsYieldsEmptyCombination(t *testing.T) {
	var got [][]game.Move
	for _, moves := range JointMoves(0) {
		got = append(got, append([]game.Move(nil), moves...))
	}
	if len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("got %v want one empty combination", got)
	}
}

func TestJointMoves_FullCrossProduct(t *testing.T) {
	seen := make(map[[3]game.Move]bool)
	for _, moves := range JointMoves(3) {
		seen[[3]game.Move{moves[0], moves[1], moves[2]}] = true
	}
	for _, a := range game.Moves {
		for _, b := range game.Moves {
			for _, c := range game.Moves {
				if !seen[[3]game.Move{a, b, c}] {
					t.Fatalf("missing combination %v %v %v", a, b, c)
				}
			}
		}
	}
}

func TestDecodeJointMove_OutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	DecodeJointMove(16, 2, nil)
}

func TestEvictOutOfBounds(t *testing.T) {
	const w, h = 7, 5
	cases := []struct {
		name string
		head [2]int
		dead bool
	}{
		{"x=width", [2]int{w, 2}, true},
		{"y=height", [2]int{3, h}, true},
		{"negative x", [2]int{-1, 2}, true},
		{"negative y", [2]int{3, -1}, true},
		{"top-right corner", [2]int{w - 1, h - 1}, false},
		{"origin", [2]int{0, 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := agent(tc.head, [2]int{3, 2})
			s := game.NewSnapshot(w, h, a, []game.Agent{a}, game.FoodSet{})
			after := EvictOutOfBounds(s)
			if after.You.Alive() == tc.dead {
				t.Fatalf("you alive=%v want dead=%v", after.You.Alive(), tc.dead)
			}
			if after.Opponents[0].Alive() == tc.dead {
				t.Fatalf("opponent alive=%v want dead=%v", after.Opponents[0].Alive(), tc.dead)
			}
		})
	}
}

func TestEvictOutOfBounds_DeadStaysDead(t *testing.T) {
	s := game.NewSnapshot(3, 3, game.DeadAgent(), []game.Agent{game.DeadAgent()}, game.FoodSet{})
	after := EvictOutOfBounds(s)
	if after.You.Alive() || after.Opponents[0].Alive() {
		t.Fatalf("dead agents revived")
	}
}

func TestResolveCollisions_HeadIntoOpponentBody(t *testing.T) {
	you := agent([2]int{3, 3}, [2]int{3, 2}, [2]int{3, 1}, [2]int{3, 0})
	long := agent([2]int{1, 3}, [2]int{2, 3}, [2]int{3, 3}, [2]int{4, 3}, [2]int{5, 3})
	short := agent([2]int{7, 2}, [2]int{7, 3}, [2]int{8, 3})

	orders := map[string][]game.Agent{
		"long-first":  {long, short},
		"long-second": {short, long},
	}
	for name, opps := range orders {
		t.Run(name, func(t *testing.T) {
			before := game.NewSnapshot(11, 11, you, opps, game.FoodSet{})
			after := ResolveCollisions(before)
			logTransition(t, name, before, after)
			if after.You.Alive() {
				t.Fatalf("you should die on the opponent's body")
			}
			for i, o := range after.Opponents {
				if !o.Alive() {
					t.Fatalf("opponent %d should survive", i)
				}
			}
		})
	}
}

func TestResolveCollisions_SelfCollision(t *testing.T) {
	// Head turned back onto its own second segment.
	you := agent([2]int{2, 2}, [2]int{2, 1}, [2]int{1, 1}, [2]int{1, 2}, [2]int{2, 2})
	before := game.NewSnapshot(5, 5, you, nil, game.FoodSet{})
	after := ResolveCollisions(before)
	if after.You.Alive() {
		t.Fatalf("self collision should kill")
	}
}

func TestResolveCollisions_OpponentIntoYourBody(t *testing.T) {
	you := agent([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0})
	opp := agent([2]int{1, 0}, [2]int{1, 1}, [2]int{1, 2})
	after := ResolveCollisions(game.NewSnapshot(5, 5, you, []game.Agent{opp}, game.FoodSet{}))
	if !after.You.Alive() || after.Opponents[0].Alive() {
		t.Fatalf("you=%v opp=%v want you alive, opponent dead", after.You.Alive(), after.Opponents[0].Alive())
	}
}

func TestResolveCollisions_HeadToHead(t *testing.T) {
	cases := []struct {
		name     string
		youLen   int
		oppLen   int
		youAlive bool
		oppAlive bool
	}{
		{"equal both die", 3, 3, false, false},
		{"you longer", 4, 3, true, false},
		{"opponent longer", 3, 5, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			you := column(2, 4, -1, tc.youLen)
			opp := column(2, 4, +1, tc.oppLen)
			before := game.NewSnapshot(5, 9, you, []game.Agent{opp}, game.FoodSet{})
			after := ResolveCollisions(before)
			logTransition(t, tc.name, before, after)
			if after.You.Alive() != tc.youAlive || after.Opponents[0].Alive() != tc.oppAlive {
				t.Fatalf("you=%v opp=%v want you=%v opp=%v", after.You.Alive(), after.Opponents[0].Alive(), tc.youAlive, tc.oppAlive)
			}
		})
	}
}

func TestResolveCollisions_HeadToHeadBetweenOpponents(t *testing.T) {
	you := agent([2]int{0, 0}, [2]int{0, 1})
	a := agent([2]int{4, 4}, [2]int{3, 4}, [2]int{2, 4})
	b := agent([2]int{4, 4}, [2]int{5, 4})
	after := ResolveCollisions(game.NewSnapshot(9, 9, you, []game.Agent{a, b}, game.FoodSet{}))
	if !after.Opponents[0].Alive() || after.Opponents[1].Alive() {
		t.Fatalf("longer opponent should survive")
	}
}

func TestResolveCollisions_EliminatedAgentCannotEliminate(t *testing.T) {
	// All three heads meet at (4,4). You and the first opponent tie and both
	// die; the first opponent is then gone when compared to the second.
	you := column(4, 4, -1, 4)
	first := row(4, 4, -1, 4)
	second := row(4, 4, +1, 3)
	before := game.NewSnapshot(9, 9, you, []game.Agent{first, second}, game.FoodSet{})
	after := ResolveCollisions(before)
	logTransition(t, "three-way", before, after)
	if after.You.Alive() || after.Opponents[0].Alive() {
		t.Fatalf("tied pair should both die")
	}
	if !after.Opponents[1].Alive() {
		t.Fatalf("shorter opponent should survive: its only rivals were already eliminated")
	}
}

func TestResolveCollisions_LongestOfThreeSurvives(t *testing.T) {
	you := column(4, 4, -1, 3)
	first := row(4, 4, -1, 5)
	second := row(4, 4, +1, 4)
	after := ResolveCollisions(game.NewSnapshot(9, 9, you, []game.Agent{first, second}, game.FoodSet{}))
	if after.You.Alive() || !after.Opponents[0].Alive() || after.Opponents[1].Alive() {
		t.Fatalf("want only the longest opponent alive, got you=%v first=%v second=%v",
			after.You.Alive(), after.Opponents[0].Alive(), after.Opponents[1].Alive())
	}
}

func TestResolveCollisions_OutOfRangeHeadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for a head outside the grid")
		}
	}()
	you := agent([2]int{5, 0}, [2]int{4, 0})
	ResolveCollisions(game.NewSnapshot(5, 5, you, nil, game.FoodSet{}))
}

func TestStep_OutOfBoundsBeforeCollisions(t *testing.T) {
	you := agent([2]int{4, 2}, [2]int{3, 2})
	opp := agent([2]int{0, 0}, [2]int{0, 1})
	before := game.NewSnapshot(5, 5, you, []game.Agent{opp}, game.FoodSet{})
	after := Step(before, game.MoveRight, []game.Move{game.MoveRight})
	logTransition(t, "step off the board", before, after)
	if after.You.Alive() {
		t.Fatalf("you should be evicted")
	}
	if !after.Opponents[0].Alive() {
		t.Fatalf("opponent should still be alive")
	}
	if Classify(after) != Lose {
		t.Fatalf("status=%v want lose", Classify(after))
	}
}

func TestStep_UsesParentFoodAndKeepsIt(t *testing.T) {
	you := agent([2]int{1, 1}, [2]int{1, 0})
	opp := agent([2]int{3, 3}, [2]int{3, 4})
	food := game.NewFoodSet(game.Cell{X: 1, Y: 2}, game.Cell{X: 3, Y: 2})
	before := game.NewSnapshot(5, 5, you, []game.Agent{opp}, food)
	after := Step(before, game.MoveUp, []game.Move{game.MoveDown})
	if after.You.Len() != 3 || after.Opponents[0].Len() != 3 {
		t.Fatalf("both agents should grow: you=%d opp=%d", after.You.Len(), after.Opponents[0].Len())
	}
	if after.Food.Len() != 2 {
		t.Fatalf("food should be carried over unchanged, got %d", after.Food.Len())
	}
	if before.You.Len() != 2 {
		t.Fatalf("parent snapshot mutated")
	}
}

func TestStep_KeepsDeadOpponentSlots(t *testing.T) {
	you := agent([2]int{2, 2}, [2]int{2, 1})
	alive := agent([2]int{0, 4}, [2]int{0, 3})
	before := game.NewSnapshot(5, 5, you, []game.Agent{game.DeadAgent(), alive}, game.FoodSet{})
	after := Step(before, game.MoveLeft, []game.Move{game.MoveUp, game.MoveRight})
	if len(after.Opponents) != 2 {
		t.Fatalf("opponent slots=%d want 2", len(after.Opponents))
	}
	if after.Opponents[0].Alive() || !after.Opponents[1].Alive() {
		t.Fatalf("slots changed state: %s", dumpSnapshot(after))
	}
}

func TestSimulate_WrongMoveCountPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	s := game.NewSnapshot(5, 5, agent([2]int{1, 1}), []game.Agent{agent([2]int{3, 3})}, game.FoodSet{})
	Simulate(s, game.MoveUp, nil)
}

func TestClassify(t *testing.T) {
	alive := agent([2]int{1, 2}, [2]int{1, 3}, [2]int{1, 4})
	other := agent([2]int{4, 2}, [2]int{4, 3}, [2]int{4, 4})
	dead := game.DeadAgent()

	cases := []struct {
		name string
		you  game.Agent
		opps []game.Agent
		want Status
	}{
		{"all opponents dead", alive, []game.Agent{dead, dead}, Win},
		{"you dead, opponents alive", dead, []game.Agent{other, other}, Lose},
		{"everyone dead", dead, []game.Agent{dead, dead}, Lose},
		{"you dead, no opponents", dead, nil, Lose},
		{"opponents alive", alive, []game.Agent{other, dead}, Continue},
		{"no opponents", alive, nil, Continue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := game.NewSnapshot(11, 11, tc.you, tc.opps, game.FoodSet{})
			if got := Classify(s); got != tc.want {
				t.Fatalf("Classify=%v want %v", got, tc.want)
			}
		})
	}
}

func TestGrid(t *testing.T) {
	g := NewGrid(13, 9)
	for x := 0; x < 13; x++ {
		for y := 0; y < 9; y++ {
			c := game.Cell{X: int8(x), Y: int8(y)}
			if g.At(c) != Empty {
				t.Fatalf("%v not empty", c)
			}
			g.Set(c, OpponentBody)
		}
	}
	if g.At(game.Cell{X: 12, Y: 8}) != OpponentBody {
		t.Fatalf("write not visible")
	}
	for _, c := range []game.Cell{{X: 13, Y: 2}, {X: 2, Y: 9}, {X: -1, Y: 3}, {X: 2, Y: -1}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic indexing %v", c)
				}
			}()
			g.At(c)
		}()
	}
}

// column builds a vertical agent of length n with its head at (x,y) and the
// body extending in direction dy.
func column(x, y, dy, n int) game.Agent {
	cells := make([]game.Cell, n)
	for i := range cells {
		cells[i] = game.Cell{X: int8(x), Y: int8(y + i*dy)}
	}
	return game.NewAgent(cells...)
}

// row is column along the x axis.
func row(x, y, dx, n int) game.Agent {
	cells := make([]game.Cell, n)
	for i := range cells {
		cells[i] = game.Cell{X: int8(x + i*dx), Y: int8(y)}
	}
	return game.NewAgent(cells...)
}
