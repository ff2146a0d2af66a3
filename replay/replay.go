// Package replay re-runs the planner over recorded games and measures how
// often it picks the move the real snake made.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/brensch/snekplan/api"
	"github.com/brensch/snekplan/game"
	"github.com/brensch/snekplan/planner"
	"github.com/brensch/snekplan/scraper/downloader"
	"github.com/brensch/snekplan/store"
)

// Report summarises one replayed game.
type Report struct {
	GameID string
	// Decisions counts turns where both the planner and the recording moved.
	Decisions int
	Agreed    int
	// Skipped counts turns where the actual move could not be recovered.
	Skipped  int
	PerSnake map[string]SnakeReport
	Rows     []store.DecisionRow
}

type SnakeReport struct {
	Decisions int
	Agreed    int
}

// Agreement is Agreed/Decisions, or 0 with no decisions.
func (r Report) Agreement() float64 {
	if r.Decisions == 0 {
		return 0
	}
	return float64(r.Agreed) / float64(r.Decisions)
}

// Options selects what to replay. An empty Snakes replays every snake.
type Options struct {
	Planner planner.Config
	Snakes  []string
}

// Game replays g. Each frame except the last is planned for every selected
// snake still alive on it, and compared to the head movement in the next
// frame. ctx is checked between turns.
func Game(ctx context.Context, g *downloader.Game, opts Options) (Report, error) {
	if err := opts.Planner.Validate(); err != nil {
		return Report{}, err
	}
	if g.Info.Game.Width <= 0 || g.Info.Game.Height <= 0 {
		return Report{}, fmt.Errorf("game %s: board size unknown", g.Info.Game.ID)
	}
	want := make(map[string]bool, len(opts.Snakes))
	for _, id := range opts.Snakes {
		want[id] = true
	}

	rep := Report{GameID: g.Info.Game.ID, PerSnake: make(map[string]SnakeReport)}
	winner := g.Winner()

	for i := 0; i+1 < len(g.Frames); i++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		frame, next := &g.Frames[i], &g.Frames[i+1]
		board := g.Board(frame)
		boardJSON, err := api.MarshalBoard(&board)
		if err != nil {
			return rep, err
		}

		for _, s := range board.Snakes {
			if len(want) > 0 && !want[s.ID] {
				continue
			}
			actual, ok := actualMove(s, next)
			if !ok {
				rep.Skipped++
				continue
			}
			snapshot, err := api.ToSnapshot(&board, s.ID)
			if err != nil {
				return rep, err
			}

			start := time.Now()
			plan := planner.FindPlan(snapshot, opts.Planner)
			elapsed := time.Since(start)

			sr := rep.PerSnake[s.ID]
			sr.Decisions++
			rep.Decisions++
			if plan.Move == actual {
				sr.Agreed++
				rep.Agreed++
			}
			rep.PerSnake[s.ID] = sr

			rep.Rows = append(rep.Rows, store.DecisionRow{
				GameID:    rep.GameID,
				Turn:      int32(frame.Turn),
				SnakeID:   s.ID,
				Width:     int32(board.Width),
				Height:    int32(board.Height),
				Board:     boardJSON,
				Move:      int32(plan.Move),
				Score:     plan.Score,
				Scores:    append([]float64(nil), plan.Scores[:]...),
				Depth:     int32(opts.Planner.Depth),
				Opponents: int32(len(snapshot.Opponents)),
				Nodes:     int64(plan.Nodes),
				ElapsedUS: elapsed.Microseconds(),
				Source:    "replay",
				Result:    result(s.ID, winner),
				Actual:    int32(actual),
			})
		}
	}
	return rep, nil
}

// actualMove recovers the move s made from its head in the next frame.
func actualMove(s api.Battlesnake, next *downloader.Frame) (game.Move, bool) {
	for _, n := range next.Snakes {
		if n.ID != s.ID || len(n.Body) == 0 {
			continue
		}
		return game.MoveBetween(api.ToCell(s.Head), api.ToCell(n.Body[0]))
	}
	return 0, false
}

func result(id, winner string) string {
	switch winner {
	case "":
		return store.ResultDraw
	case id:
		return store.ResultWon
	default:
		return store.ResultLost
	}
}
