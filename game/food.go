// food.go implements food spawning for locally refereed games.

package game

import (
	"math/rand"
)

// FoodSettings controls food spawning behavior.
type FoodSettings struct {
	MinimumFood     int // Guaranteed minimum on board at all times
	FoodSpawnChance int // Percentage chance (0–100) to spawn extra food each turn
}

// DefaultFoodSettings matches standard Battlesnake rules (1 minimum, 15% chance each turn).
var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15}

// SpawnFood returns food with new cells appended according to settings.
// Cells in occupied and existing food are never chosen. If rng is nil the
// choice is derived deterministically from turn and salt.
func SpawnFood(width, height int, occupied []Cell, food []Cell, rng *rand.Rand, settings FoodSettings, turn int, salt uint64) []Cell {
	taken := make(map[Cell]bool, len(occupied)+len(food))
	for _, c := range occupied {
		taken[c] = true
	}
	for _, c := range food {
		taken[c] = true
	}

	out := make([]Cell, len(food), len(food)+2)
	copy(out, food)

	spawn := func(draw uint64) bool {
		free := make([]Cell, 0, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := Cell{X: int8(x), Y: int8(y)}
				if !taken[c] {
					free = append(free, c)
				}
			}
		}
		if len(free) == 0 {
			return false
		}
		var idx int
		if rng != nil {
			idx = rng.Intn(len(free))
		} else {
			idx = int(draw % uint64(len(free)))
		}
		c := free[idx]
		out = append(out, c)
		taken[c] = true
		return true
	}

	for i := 0; len(out) < settings.MinimumFood; i++ {
		if !spawn(splitmix(uint64(turn), salt+uint64(i))) {
			break
		}
	}

	if settings.FoodSpawnChance > 0 {
		var roll int
		if rng != nil {
			roll = rng.Intn(100)
		} else {
			roll = int(splitmix(uint64(turn), salt^0xF00D) % 100)
		}
		if roll < settings.FoodSpawnChance {
			spawn(splitmix(uint64(turn), salt^0xBEEF))
		}
	}

	return out
}

// splitmix is a small deterministic hash for reproducible spawning.
func splitmix(a, b uint64) uint64 {
	x := a + b + 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
