package selfplay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snekplan/api"
	"github.com/brensch/snekplan/game"
	"github.com/brensch/snekplan/planner"
	"github.com/brensch/snekplan/store"
)

// Config describes one arena game.
type Config struct {
	Width    int
	Height   int
	Snakes   int
	MaxTurns int
	Seed     int64
	Food     game.FoodSettings
	Planner  planner.Config
	// Verbose logs the rendered board every turn through Logf.
	Verbose bool
	Logf    func(format string, args ...any)
}

func DefaultConfig() Config {
	cfg := planner.DefaultConfig()
	cfg.Depth = 2
	return Config{
		Width:    11,
		Height:   11,
		Snakes:   2,
		MaxTurns: 500,
		Food:     game.DefaultFoodSettings,
		Planner:  cfg,
	}
}

func (c Config) Validate() error {
	if c.Snakes < 1 || c.Snakes > MaxSnakes {
		return fmt.Errorf("snakes must be in [1, %d], got %d", MaxSnakes, c.Snakes)
	}
	if c.Width < 3 || c.Height < 3 || c.Width > 127 || c.Height > 127 {
		return fmt.Errorf("board %dx%d out of range", c.Width, c.Height)
	}
	if c.MaxTurns < 1 {
		return errors.New("max turns must be positive")
	}
	return c.Planner.Validate()
}

// Result is a finished (or abandoned) game.
type Result struct {
	GameID string
	// Winner is empty on a draw.
	Winner       string
	Turns        int
	Completed    bool
	Eliminations []Elimination
	Rows         []store.DecisionRow
}

// PlayGame plays every snake with its own planner search until at most one
// snake is left or MaxTurns is reached. onTurn, if set, is called after
// every turn. A cancelled ctx stops the game between turns and returns the
// partial result with ctx.Err().
func PlayGame(ctx context.Context, cfg Config, onTurn func(turn int)) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ref := &Referee{Food: cfg.Food, Rng: rand.New(rand.NewSource(seed))}

	ids := make([]string, cfg.Snakes)
	for i := range ids {
		ids[i] = fmt.Sprintf("snake%d", i+1)
	}
	board := NewBoard(cfg.Width, cfg.Height, ids)
	ref.PlaceInitialFood(board)

	res := Result{GameID: uuid.NewString()}
	started := len(board.Snakes)

	for board.Turn < cfg.MaxTurns {
		if err := ctx.Err(); err != nil {
			res.Turns = board.Turn
			return res, err
		}
		if len(board.Snakes) == 0 || (started > 1 && GameOver(board)) {
			break
		}
		if cfg.Verbose && cfg.Logf != nil {
			cfg.Logf("%s", RenderBoard(board))
		}

		decisions, err := decide(board, cfg.Planner)
		if err != nil {
			return res, err
		}
		moves := make(map[string]game.Move, len(decisions))
		for _, d := range decisions {
			moves[d.SnakeID] = game.Move(d.Move)
			d.GameID = res.GameID
			d.Actual = d.Move
			res.Rows = append(res.Rows, d)
		}

		var elims []Elimination
		board, elims = ref.Step(board, moves)
		res.Eliminations = append(res.Eliminations, elims...)
		if onTurn != nil {
			onTurn(board.Turn)
		}
	}

	res.Turns = board.Turn
	res.Completed = true
	if len(board.Snakes) == 1 && started > 1 {
		res.Winner = board.Snakes[0].ID
	}
	for i := range res.Rows {
		res.Rows[i].Result = outcome(res.Rows[i].SnakeID, res.Winner, board)
	}
	return res, nil
}

// outcome is a snake's result once the game is over. Snakes still alive at
// the turn limit draw.
func outcome(id, winner string, final *Board) string {
	switch {
	case winner == id:
		return store.ResultWon
	case winner != "":
		return store.ResultLost
	}
	if _, alive := final.Snake(id); alive || len(final.Snakes) == 0 {
		return store.ResultDraw
	}
	return store.ResultLost
}

// decide plans every living snake concurrently. Rows come back in board order.
func decide(board *Board, cfg planner.Config) ([]store.DecisionRow, error) {
	wire := board.Wire()
	boardJSON, err := api.MarshalBoard(&wire)
	if err != nil {
		return nil, err
	}

	rows := make([]store.DecisionRow, len(board.Snakes))
	errs := make([]error, len(board.Snakes))
	var wg sync.WaitGroup
	for i, s := range board.Snakes {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			snapshot, err := api.ToSnapshot(&wire, id)
			if err != nil {
				errs[i] = err
				return
			}
			start := time.Now()
			plan := planner.FindPlan(snapshot, cfg)
			rows[i] = store.DecisionRow{
				Turn:      int32(board.Turn),
				SnakeID:   id,
				Width:     int32(board.Width),
				Height:    int32(board.Height),
				Board:     boardJSON,
				Move:      int32(plan.Move),
				Score:     plan.Score,
				Scores:    append([]float64(nil), plan.Scores[:]...),
				Depth:     int32(cfg.Depth),
				Opponents: int32(len(snapshot.Opponents)),
				Nodes:     int64(plan.Nodes),
				ElapsedUS: time.Since(start).Microseconds(),
				Source:    "selfplay",
			}
		}(i, s.ID)
	}
	wg.Wait()
	return rows, errors.Join(errs...)
}
