// Package selfplay referees local games between planners and records every
// decision they make.
package selfplay

import (
	"github.com/brensch/snekplan/api"
	"github.com/brensch/snekplan/game"
)

// MaxHealth is a snake's health after spawning or eating.
const MaxHealth = 100

// Snake is the referee's view of one player. Unlike game.Agent it tracks
// health, which the planner never sees.
type Snake struct {
	ID     string
	Health int
	Body   []game.Cell
}

func (s Snake) Head() game.Cell { return s.Body[0] }

// Board is the authoritative state of a refereed game. Eliminated snakes are
// removed from Snakes.
type Board struct {
	Width  int
	Height int
	Turn   int
	Snakes []Snake
	Food   []game.Cell
}

func (b *Board) Clone() *Board {
	out := &Board{
		Width:  b.Width,
		Height: b.Height,
		Turn:   b.Turn,
		Snakes: make([]Snake, len(b.Snakes)),
		Food:   append([]game.Cell(nil), b.Food...),
	}
	for i, s := range b.Snakes {
		out.Snakes[i] = Snake{ID: s.ID, Health: s.Health, Body: append([]game.Cell(nil), s.Body...)}
	}
	return out
}

// Snake returns the living snake with id.
func (b *Board) Snake(id string) (Snake, bool) {
	for _, s := range b.Snakes {
		if s.ID == id {
			return s, true
		}
	}
	return Snake{}, false
}

// Wire renders b as the engine would send it.
func (b *Board) Wire() api.Board {
	wb := api.Board{
		Width:   b.Width,
		Height:  b.Height,
		Food:    make([]api.Coord, len(b.Food)),
		Hazards: []api.Coord{},
		Snakes:  make([]api.Battlesnake, len(b.Snakes)),
	}
	for i, f := range b.Food {
		wb.Food[i] = api.FromCell(f)
	}
	for i, s := range b.Snakes {
		body := make([]api.Coord, len(s.Body))
		for j, c := range s.Body {
			body[j] = api.FromCell(c)
		}
		wb.Snakes[i] = api.Battlesnake{
			ID:     s.ID,
			Name:   s.ID,
			Health: s.Health,
			Body:   body,
			Head:   body[0],
			Length: len(body),
		}
	}
	return wb
}

// spawnPoints are the standard starting cells scaled to the board, corners
// first and then edge midpoints.
func spawnPoints(width, height int) []game.Cell {
	lo, hiX, hiY := 1, width-2, height-2
	midX, midY := width/2, height/2
	pts := []game.Cell{
		{X: int8(lo), Y: int8(lo)},
		{X: int8(hiX), Y: int8(hiY)},
		{X: int8(lo), Y: int8(hiY)},
		{X: int8(hiX), Y: int8(lo)},
		{X: int8(midX), Y: int8(lo)},
		{X: int8(midX), Y: int8(hiY)},
		{X: int8(lo), Y: int8(midY)},
		{X: int8(hiX), Y: int8(midY)},
	}
	return pts
}

// MaxSnakes is the number of distinct spawn points.
const MaxSnakes = 8

// NewBoard places n snakes of length 3, stacked on their spawn cell.
func NewBoard(width, height int, ids []string) *Board {
	pts := spawnPoints(width, height)
	b := &Board{Width: width, Height: height}
	for i, id := range ids {
		p := pts[i%len(pts)]
		b.Snakes = append(b.Snakes, Snake{ID: id, Health: MaxHealth, Body: []game.Cell{p, p, p}})
	}
	return b
}
