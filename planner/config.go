package planner

import (
	"errors"
	"fmt"
)

// Config holds search parameters. It is passed explicitly to every search.
type Config struct {
	// Depth is the number of plies searched before the horizon heuristic.
	Depth int
	// WinValue scores a ply in which every opponent has been eliminated.
	WinValue float64
	// LoseValue scores a ply in which the controlled agent died.
	LoseValue float64
	// Heuristic scores Continue states at the horizon. Nil uses HorizonScore.
	Heuristic Heuristic
}

// Reference parameters.
const (
	DefaultDepth     = 4
	DefaultWinValue  = 1.0
	DefaultLoseValue = -10.0
	HorizonScore     = 0.5
)

// DefaultConfig returns the reference search parameters.
func DefaultConfig() Config {
	return Config{
		Depth:     DefaultDepth,
		WinValue:  DefaultWinValue,
		LoseValue: DefaultLoseValue,
		Heuristic: Constant(HorizonScore),
	}
}

// Validate checks that the configuration can order outcomes.
func (c Config) Validate() error {
	if c.Depth < 0 {
		return fmt.Errorf("search depth %d is negative", c.Depth)
	}
	if !(c.LoseValue < c.WinValue) {
		return errors.New("lose value must be below win value")
	}
	if k, ok := c.heuristic().(Constant); ok {
		if v := float64(k); !(c.LoseValue < v && v < c.WinValue) {
			return fmt.Errorf("horizon score %v not between lose %v and win %v", v, c.LoseValue, c.WinValue)
		}
	}
	return nil
}

func (c Config) heuristic() Heuristic {
	if c.Heuristic == nil {
		return Constant(HorizonScore)
	}
	return c.Heuristic
}
