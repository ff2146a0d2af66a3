// Package rules implements the simultaneous-move transition used by the
// planner: every agent moves, heads that leave the board are evicted, then
// body and head-to-head collisions are resolved.
package rules

import (
	"fmt"

	"github.com/brensch/snekplan/game"
)

// Simulate moves the controlled agent by you and opponent i by opps[i],
// growing any agent whose new head lands on the parent's food. Food is
// carried over unchanged.
func Simulate(s *game.Snapshot, you game.Move, opps []game.Move) *game.Snapshot {
	if len(opps) != len(s.Opponents) {
		panic(fmt.Sprintf("rules: %d opponent moves for %d opponents", len(opps), len(s.Opponents)))
	}
	next := make([]game.Agent, len(s.Opponents))
	for i, o := range s.Opponents {
		next[i] = o.Update(opps[i], s.Food)
	}
	return &game.Snapshot{
		Width:     s.Width,
		Height:    s.Height,
		You:       s.You.Update(you, s.Food),
		Opponents: next,
		Food:      s.Food,
	}
}

// Step runs the full transition: Simulate, EvictOutOfBounds, ResolveCollisions.
// The order matters; collisions index the grid by head cell.
func Step(s *game.Snapshot, you game.Move, opps []game.Move) *game.Snapshot {
	return ResolveCollisions(EvictOutOfBounds(Simulate(s, you, opps)))
}
