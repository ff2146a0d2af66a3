// Package planner chooses the controlled agent's move with a depth-bounded
// expectation search. Every opponent is modelled as moving uniformly at
// random, so each candidate move is scored by the mean outcome over all 4^N
// joint opponent moves.
package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/brensch/snekplan/game"
	"github.com/brensch/snekplan/rules"
)

// Plan is the outcome of a search.
type Plan struct {
	Move game.Move
	// Score is the averaged score of Move.
	Score float64
	// Scores holds the averaged score of every candidate, indexed by Move.
	// It is zero when the search was at its horizon.
	Scores [game.NumMoves]float64
	// Nodes counts the snapshots produced by the search.
	Nodes int
}

// FindPlan searches s to cfg.Depth plies and returns the best move. Ties go
// to the later move in Up, Down, Left, Right order. At depth 0 it returns Up
// with the horizon score of s.
func FindPlan(s *game.Snapshot, cfg Config) Plan {
	sr := searcher{cfg: cfg, h: cfg.heuristic()}
	plan := sr.find(s, cfg.Depth)
	plan.Nodes = sr.nodes
	return plan
}

type searcher struct {
	cfg   Config
	h     Heuristic
	nodes int
}

func (sr *searcher) find(s *game.Snapshot, depth int) Plan {
	if depth <= 0 {
		return Plan{Move: game.MoveUp, Score: sr.h.Score(s)}
	}

	var plan Plan
	for i, m := range game.Moves {
		score := sr.expect(s, m, depth)
		plan.Scores[m] = score
		if i == 0 || score >= plan.Score {
			plan.Move = m
			plan.Score = score
		}
	}
	return plan
}

// expect averages the outcome of you playing m over every joint opponent move.
func (sr *searcher) expect(s *game.Snapshot, m game.Move, depth int) float64 {
	n := len(s.Opponents)
	total := rules.JointMoveCount(n)
	var sum float64
	for _, opps := range rules.JointMoves(n) {
		next := rules.Step(s, m, opps)
		sr.nodes++
		switch rules.Classify(next) {
		case rules.Win:
			sum += sr.cfg.WinValue
		case rules.Lose:
			sum += sr.cfg.LoseValue
		default:
			sum += sr.find(next, depth-1).Score
		}
	}
	return sum / float64(total)
}

// Planner runs searches for a request handler.
type Planner struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and returns a Planner. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{cfg: cfg, logger: logger}, nil
}

func (p *Planner) Config() Config { return p.cfg }

// Plan runs FindPlan on its own goroutine so the caller's goroutine is free
// to observe ctx. The search itself cannot be interrupted; when ctx ends
// first its result is dropped and ctx.Err() is returned.
func (p *Planner) Plan(ctx context.Context, s *game.Snapshot) (Plan, error) {
	start := time.Now()
	done := make(chan Plan, 1)
	go func() {
		done <- FindPlan(s, p.cfg)
	}()

	select {
	case plan := <-done:
		p.logger.Debug("plan",
			"depth", p.cfg.Depth,
			"opponents", len(s.Opponents),
			"move", plan.Move.String(),
			"score", plan.Score,
			"scores", plan.Scores[:],
			"nodes", plan.Nodes,
			"elapsed", time.Since(start),
		)
		return plan, nil
	case <-ctx.Done():
		p.logger.Warn("plan abandoned", "depth", p.cfg.Depth, "opponents", len(s.Opponents), "err", ctx.Err())
		return Plan{}, ctx.Err()
	}
}

// Decide returns only the chosen move.
func (p *Planner) Decide(ctx context.Context, s *game.Snapshot) (game.Move, error) {
	plan, err := p.Plan(ctx, s)
	if err != nil {
		return game.MoveUp, err
	}
	return plan.Move, nil
}
