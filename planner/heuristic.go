package planner

import "github.com/brensch/snekplan/game"

// Heuristic scores a non-terminal snapshot at the search horizon. Scores
// should stay strictly between the configured lose and win values.
type Heuristic interface {
	Score(s *game.Snapshot) float64
}

// Constant scores every horizon state the same.
type Constant float64

func (c Constant) Score(*game.Snapshot) float64 { return float64(c) }

// HeuristicFunc adapts a function to Heuristic.
type HeuristicFunc func(s *game.Snapshot) float64

func (f HeuristicFunc) Score(s *game.Snapshot) float64 { return f(s) }

// Rescale maps v from [-1,1] onto the open interval (lose, win), leaving a
// margin so the result never reaches either sentinel.
func Rescale(v, lose, win float64) float64 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	const margin = 0.01
	lo := lose + margin*(win-lose)
	hi := win - margin*(win-lose)
	return lo + (v+1)/2*(hi-lo)
}
