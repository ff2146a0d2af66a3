package api

import (
	"errors"
	"fmt"

	"github.com/brensch/snekplan/game"
)

// ErrPlayerNotFound is returned when the controlled snake is not on the board.
var ErrPlayerNotFound = errors.New("player not found")

// ToSnapshot builds the planner's view of b for the snake with id youID.
// Opponents keep the board's order. Hazards are ignored. Coordinates are
// narrowed to int8 without checking.
func ToSnapshot(b *Board, youID string) (*game.Snapshot, error) {
	var (
		you   game.Agent
		found bool
		opps  = make([]game.Agent, 0, len(b.Snakes))
	)
	for i := range b.Snakes {
		s := &b.Snakes[i]
		if s.ID == youID && !found {
			you = ToAgent(s)
			found = true
			continue
		}
		opps = append(opps, ToAgent(s))
	}
	if !found {
		return nil, fmt.Errorf("snake %q on %dx%d board: %w", youID, b.Width, b.Height, ErrPlayerNotFound)
	}

	food := make([]game.Cell, len(b.Food))
	for i, f := range b.Food {
		food[i] = ToCell(f)
	}
	return game.NewSnapshot(b.Width, b.Height, you, opps, game.NewFoodSet(food...)), nil
}

// ToAgent converts a wire snake. Body already starts at the head; the head
// field is only used when the body is missing.
func ToAgent(s *Battlesnake) game.Agent {
	if len(s.Body) == 0 {
		return game.NewAgent(ToCell(s.Head))
	}
	cells := make([]game.Cell, len(s.Body))
	for i, c := range s.Body {
		cells[i] = ToCell(c)
	}
	return game.NewAgent(cells...)
}

func ToCell(c Coord) game.Cell {
	return game.Cell{X: int8(c.X), Y: int8(c.Y)}
}

func FromCell(c game.Cell) Coord {
	return Coord{X: int(c.X), Y: int(c.Y)}
}

// NewMoveResponse translates m to the wire vocabulary.
func NewMoveResponse(m game.Move) MoveResponse {
	return MoveResponse{Move: m.String()}
}
