package game

import "sort"

// FoodSet is an immutable set of food cells.
type FoodSet struct {
	cells map[Cell]struct{}
}

// NewFoodSet builds a set from cells; duplicates collapse.
func NewFoodSet(cells ...Cell) FoodSet {
	if len(cells) == 0 {
		return FoodSet{}
	}
	m := make(map[Cell]struct{}, len(cells))
	for _, c := range cells {
		m[c] = struct{}{}
	}
	return FoodSet{cells: m}
}

// Contains reports whether c holds food.
func (f FoodSet) Contains(c Cell) bool {
	_, ok := f.cells[c]
	return ok
}

func (f FoodSet) Len() int {
	return len(f.cells)
}

// Cells returns the food cells sorted by (Y, X).
func (f FoodSet) Cells() []Cell {
	out := make([]Cell, 0, len(f.cells))
	for c := range f.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Snapshot is the board as seen by the controlled agent for one turn.
// Width and Height bound legal coordinates to [0,Width) x [0,Height).
type Snapshot struct {
	Width     int
	Height    int
	You       Agent
	Opponents []Agent
	Food      FoodSet
}

// NewSnapshot copies opponents so the snapshot owns its slice.
func NewSnapshot(width, height int, you Agent, opponents []Agent, food FoodSet) *Snapshot {
	opps := make([]Agent, len(opponents))
	copy(opps, opponents)
	return &Snapshot{
		Width:     width,
		Height:    height,
		You:       you,
		Opponents: opps,
		Food:      food,
	}
}

// AliveOpponents counts opponents that still have a body.
func (s *Snapshot) AliveOpponents() int {
	n := 0
	for _, o := range s.Opponents {
		if o.Alive() {
			n++
		}
	}
	return n
}
