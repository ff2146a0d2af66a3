// Package game defines the board snapshot types used by the planner.
//
// Every value here is treated as immutable once built: transitions return
// fresh Agents and Snapshots and never write through to their inputs.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
package game

import "fmt"

// Cell is a board coordinate. It may lie outside the grid transiently, after
// a move and before the out-of-bounds pass evicts the agent.
type Cell struct {
	X int8
	Y int8
}

// Move is one of the four cardinal directions.
type Move uint8

const (
	MoveUp Move = iota
	MoveDown
	MoveLeft
	MoveRight
)

// NumMoves is the branching factor of a single agent.
const NumMoves = 4

// Moves lists every Move in search enumeration order.
var Moves = [NumMoves]Move{MoveUp, MoveDown, MoveLeft, MoveRight}

// Add returns the cell adjacent to c in direction m.
func (c Cell) Add(m Move) Cell {
	switch m {
	case MoveUp:
		return Cell{X: c.X, Y: c.Y + 1}
	case MoveDown:
		return Cell{X: c.X, Y: c.Y - 1}
	case MoveLeft:
		return Cell{X: c.X - 1, Y: c.Y}
	case MoveRight:
		return Cell{X: c.X + 1, Y: c.Y}
	default:
		panic(fmt.Sprintf("game: invalid move %d", m))
	}
}

// InBounds reports whether c lies in [0,width) x [0,height).
func (c Cell) InBounds(width, height int) bool {
	return c.X >= 0 && int(c.X) < width && c.Y >= 0 && int(c.Y) < height
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// String returns the wire name of the move ("up", "down", "left", "right").
func (m Move) String() string {
	switch m {
	case MoveUp:
		return "up"
	case MoveDown:
		return "down"
	case MoveLeft:
		return "left"
	case MoveRight:
		return "right"
	default:
		return fmt.Sprintf("Move(%d)", uint8(m))
	}
}

// ParseMove is the inverse of Move.String.
func ParseMove(s string) (Move, error) {
	switch s {
	case "up":
		return MoveUp, nil
	case "down":
		return MoveDown, nil
	case "left":
		return MoveLeft, nil
	case "right":
		return MoveRight, nil
	}
	return 0, fmt.Errorf("unknown move %q", s)
}

// MoveBetween returns the move that takes from to to, if they are adjacent.
func MoveBetween(from, to Cell) (Move, bool) {
	for _, m := range Moves {
		if from.Add(m) == to {
			return m, true
		}
	}
	return 0, false
}
