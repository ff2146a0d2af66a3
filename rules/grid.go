package rules

import (
	"fmt"

	"github.com/brensch/snekplan/game"
)

// Occupant is what covers a cell in the occupancy grid.
type Occupant uint8

const (
	Empty Occupant = iota
	YouBody
	OpponentBody
)

func (o Occupant) String() string {
	switch o {
	case Empty:
		return "empty"
	case YouBody:
		return "you-body"
	case OpponentBody:
		return "opponent-body"
	default:
		return fmt.Sprintf("Occupant(%d)", uint8(o))
	}
}

// Grid is a width x height occupancy map, row-major from the bottom row.
type Grid struct {
	width  int
	height int
	cells  []Occupant
}

// NewGrid returns an all-Empty grid.
func NewGrid(width, height int) *Grid {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("rules: invalid grid size %dx%d", width, height))
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]Occupant, width*height),
	}
}

// At returns the occupant of c. Indexing outside the grid panics: every head
// must have been through EvictOutOfBounds before collisions are resolved.
func (g *Grid) At(c game.Cell) Occupant {
	return g.cells[g.index(c)]
}

// Set marks c with o; it panics on out-of-range cells like At.
func (g *Grid) Set(c game.Cell, o Occupant) {
	g.cells[g.index(c)] = o
}

func (g *Grid) index(c game.Cell) int {
	if !c.InBounds(g.width, g.height) {
		panic(fmt.Sprintf("rules: cell %v outside %dx%d occupancy grid", c, g.width, g.height))
	}
	return int(c.Y)*g.width + int(c.X)
}
