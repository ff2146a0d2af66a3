package rules

import "github.com/brensch/snekplan/game"

// Status is the terminal classification of a snapshot for the controlled agent.
type Status uint8

const (
	Continue Status = iota
	Win
	Lose
)

func (s Status) String() string {
	switch s {
	case Win:
		return "win"
	case Lose:
		return "lose"
	default:
		return "continue"
	}
}

// Classify returns Lose when the controlled agent is dead, Win when it is
// alive and every opponent (at least one) is dead, and Continue otherwise.
// With no opponents at all the game continues.
func Classify(s *game.Snapshot) Status {
	if !s.You.Alive() {
		return Lose
	}
	if len(s.Opponents) > 0 && s.AliveOpponents() == 0 {
		return Win
	}
	return Continue
}
