package rules

import "github.com/brensch/snekplan/game"

// ResolveCollisions eliminates agents whose head ran into a body segment and
// then settles head-to-head collisions. It must run after EvictOutOfBounds;
// an out-of-range head panics.
//
// Body segments are every cell behind a living agent's head, including the
// agent's own. Head-to-head pairs are compared you-vs-opponent first, in
// opponent order, then opponent pairs (i<j). The longer agent survives,
// equal lengths kill both, and an agent eliminated earlier in the pass no
// longer takes part.
func ResolveCollisions(s *game.Snapshot) *game.Snapshot {
	grid := NewGrid(s.Width, s.Height)
	markBody(grid, s.You, YouBody)
	for _, o := range s.Opponents {
		markBody(grid, o, OpponentBody)
	}

	you := bodyCollision(grid, s.You)
	opps := make([]game.Agent, len(s.Opponents))
	for i, o := range s.Opponents {
		opps[i] = bodyCollision(grid, o)
	}

	for i := range opps {
		you, opps[i] = headToHead(you, opps[i])
	}
	for i := range opps {
		for j := i + 1; j < len(opps); j++ {
			opps[i], opps[j] = headToHead(opps[i], opps[j])
		}
	}

	return &game.Snapshot{
		Width:     s.Width,
		Height:    s.Height,
		You:       you,
		Opponents: opps,
		Food:      s.Food,
	}
}

func markBody(grid *Grid, a game.Agent, o Occupant) {
	for _, c := range a.Body() {
		grid.Set(c, o)
	}
}

func bodyCollision(grid *Grid, a game.Agent) game.Agent {
	head, ok := a.Head()
	if !ok {
		return a
	}
	if grid.At(head) != Empty {
		return game.DeadAgent()
	}
	return a
}

func headToHead(a, b game.Agent) (game.Agent, game.Agent) {
	ha, okA := a.Head()
	hb, okB := b.Head()
	if !okA || !okB || ha != hb {
		return a, b
	}
	switch {
	case a.Len() > b.Len():
		return a, game.DeadAgent()
	case b.Len() > a.Len():
		return game.DeadAgent(), b
	default:
		return game.DeadAgent(), game.DeadAgent()
	}
}
