package rules

import "github.com/brensch/snekplan/game"

// EvictOutOfBounds kills every agent whose head left the board. Dead agents
// are left as they are. It returns a new snapshot.
func EvictOutOfBounds(s *game.Snapshot) *game.Snapshot {
	opps := make([]game.Agent, len(s.Opponents))
	for i, o := range s.Opponents {
		opps[i] = evictAgent(o, s.Width, s.Height)
	}
	return &game.Snapshot{
		Width:     s.Width,
		Height:    s.Height,
		You:       evictAgent(s.You, s.Width, s.Height),
		Opponents: opps,
		Food:      s.Food,
	}
}

func evictAgent(a game.Agent, width, height int) game.Agent {
	head, ok := a.Head()
	if !ok || head.InBounds(width, height) {
		return a
	}
	return game.DeadAgent()
}
