package selfplay

import (
	"math/rand"

	"github.com/brensch/snekplan/game"
)

// Elimination causes.
const (
	CauseWall       = "wall-collision"
	CauseBody       = "snake-collision"
	CauseHeadToHead = "head-collision"
	CauseStarvation = "out-of-health"
	CauseNoMove     = "no-move"
)

// Elimination records why a snake left the board.
type Elimination struct {
	ID    string
	Cause string
	Turn  int
}

// Referee applies full rules: simultaneous movement, food eaten and removed,
// health decay, every elimination kind, then food spawning.
type Referee struct {
	Food game.FoodSettings
	Rng  *rand.Rand
}

// Step returns the board after every snake plays its move. Snakes missing
// from moves are eliminated.
func (r *Referee) Step(b *Board, moves map[string]game.Move) (*Board, []Elimination) {
	next := b.Clone()
	next.Turn++

	var out []Elimination
	dead := make(map[string]string)

	eaten := make(map[game.Cell]bool)
	for i := range next.Snakes {
		s := &next.Snakes[i]
		m, ok := moves[s.ID]
		if !ok {
			dead[s.ID] = CauseNoMove
			continue
		}
		head := s.Body[0].Add(m)
		s.Body = append([]game.Cell{head}, s.Body[:len(s.Body)-1]...)
		s.Health--
		for _, f := range next.Food {
			if f == head {
				eaten[f] = true
			}
		}
	}

	// Growth: eating restores health and duplicates the tail.
	remaining := next.Food[:0]
	for _, f := range next.Food {
		if !eaten[f] {
			remaining = append(remaining, f)
		}
	}
	next.Food = remaining
	for i := range next.Snakes {
		s := &next.Snakes[i]
		if _, gone := dead[s.ID]; gone {
			continue
		}
		if eaten[s.Body[0]] {
			s.Health = MaxHealth
			s.Body = append(s.Body, s.Body[len(s.Body)-1])
		}
	}

	for _, s := range next.Snakes {
		if _, gone := dead[s.ID]; gone {
			continue
		}
		switch {
		case s.Health <= 0:
			dead[s.ID] = CauseStarvation
		case !s.Head().InBounds(next.Width, next.Height):
			dead[s.ID] = CauseWall
		}
	}

	// Bodies are checked against every snake that survived the first pass.
	for _, s := range next.Snakes {
		if _, gone := dead[s.ID]; gone {
			continue
		}
		head := s.Head()
	bodies:
		for _, other := range next.Snakes {
			if cause, gone := dead[other.ID]; gone && cause != CauseBody {
				continue
			}
			for _, c := range other.Body[1:] {
				if c == head {
					dead[s.ID] = CauseBody
					break bodies
				}
			}
		}
	}

	for i := 0; i < len(next.Snakes); i++ {
		a := next.Snakes[i]
		for j := i + 1; j < len(next.Snakes); j++ {
			o := next.Snakes[j]
			if a.Head() != o.Head() {
				continue
			}
			if _, gone := dead[a.ID]; gone && dead[a.ID] != CauseHeadToHead {
				continue
			}
			if _, gone := dead[o.ID]; gone && dead[o.ID] != CauseHeadToHead {
				continue
			}
			switch {
			case len(a.Body) > len(o.Body):
				dead[o.ID] = CauseHeadToHead
			case len(o.Body) > len(a.Body):
				dead[a.ID] = CauseHeadToHead
			default:
				dead[a.ID] = CauseHeadToHead
				dead[o.ID] = CauseHeadToHead
			}
		}
	}

	survivors := next.Snakes[:0]
	for _, s := range next.Snakes {
		if cause, gone := dead[s.ID]; gone {
			out = append(out, Elimination{ID: s.ID, Cause: cause, Turn: next.Turn})
			continue
		}
		survivors = append(survivors, s)
	}
	next.Snakes = survivors

	r.spawn(next)
	return next, out
}

// PlaceInitialFood spawns the opening food with a guaranteed minimum and no
// random extra.
func (r *Referee) PlaceInitialFood(b *Board) {
	settings := r.Food
	settings.FoodSpawnChance = 0
	b.Food = game.SpawnFood(b.Width, b.Height, occupied(b), b.Food, r.Rng, settings, b.Turn, 0)
}

func (r *Referee) spawn(b *Board) {
	b.Food = game.SpawnFood(b.Width, b.Height, occupied(b), b.Food, r.Rng, r.Food, b.Turn, 0)
}

func occupied(b *Board) []game.Cell {
	var cells []game.Cell
	for _, s := range b.Snakes {
		cells = append(cells, s.Body...)
	}
	return cells
}

// GameOver reports whether at most one snake is left.
func GameOver(b *Board) bool {
	return len(b.Snakes) <= 1
}
