// Package server exposes the planner over the Battlesnake HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snekplan/api"
	"github.com/brensch/snekplan/game"
	"github.com/brensch/snekplan/planner"
	"github.com/brensch/snekplan/store"
)

// Info is the customisation returned from the index route.
type Info struct {
	Author  string
	Color   string
	Head    string
	Tail    string
	Version string
}

// Server handles the four Battlesnake routes. Archive and Registry are
// optional.
type Server struct {
	planner  *planner.Planner
	info     Info
	archive  *store.Archive
	registry *store.Registry
	logger   *slog.Logger
}

type Option func(*Server)

func WithArchive(a *store.Archive) Option { return func(s *Server) { s.archive = a } }

func WithRegistry(r *store.Registry) Option { return func(s *Server) { s.registry = r } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

func New(p *planner.Planner, info Info, opts ...Option) *Server {
	s := &Server{planner: p, info: info, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /move", s.handleMove)
	mux.HandleFunc("POST /end", s.handleEnd)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, api.InfoResponse{
		APIVersion: api.APIVersion,
		Author:     s.info.Author,
		Color:      s.info.Color,
		Head:       s.info.Head,
		Tail:       s.info.Tail,
		Version:    s.info.Version,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, err := api.DecodeGameRequest(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Info("game started",
		"game", req.Game.ID,
		"ruleset", req.Game.Ruleset.Name,
		"map", req.Game.Map,
		"snakes", len(req.Board.Snakes),
		"you", req.You.Name,
	)
	if s.registry != nil {
		err := s.registry.StartGame(r.Context(), store.GameRecord{
			ID:        req.Game.ID,
			Ruleset:   req.Game.Ruleset.Name,
			Map:       req.Game.Map,
			TimeoutMS: req.Game.Timeout,
			YouID:     req.You.ID,
			StartedAt: time.Now(),
		})
		if err != nil {
			s.logger.Error("registry start", "game", req.Game.ID, "err", err)
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()

	req, err := api.DecodeGameRequest(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger := s.logger.With("game", req.Game.ID, "turn", req.Turn, "request", requestID)

	snapshot, err := api.ToSnapshot(&req.Board, req.You.ID)
	if err != nil {
		logger.Error("build snapshot", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The engine's timeout is reported but does not bound the search.
	logger.Debug("move requested",
		"timeout_ms", req.Game.Timeout,
		"latency", req.You.Latency,
		"opponents", len(snapshot.Opponents),
	)

	plan, err := s.planner.Plan(r.Context(), snapshot)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		logger.Error("plan", "err", err)
		http.Error(w, err.Error(), status)
		return
	}
	elapsed := time.Since(start)

	logger.Info("move",
		"move", plan.Move.String(),
		"score", plan.Score,
		"nodes", plan.Nodes,
		"elapsed", elapsed,
	)
	s.record(r.Context(), logger, req, snapshot, plan, elapsed)

	writeJSON(w, logger, api.NewMoveResponse(plan.Move))
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	req, err := api.DecodeGameRequest(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := Outcome(&req.Board, req.You.ID)
	s.logger.Info("game ended", "game", req.Game.ID, "turn", req.Turn, "result", result)

	if s.registry != nil {
		if err := s.registry.EndGame(r.Context(), req.Game.ID, req.Turn, result, time.Now()); err != nil {
			s.logger.Error("registry end", "game", req.Game.ID, "err", err)
		}
	}
	if s.archive != nil {
		if _, err := s.archive.EndGame(req.Game.ID, result); err != nil {
			s.logger.Error("archive end", "game", req.Game.ID, "err", err)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// Outcome reads the final board: won if youID is still on it, draw if nobody
// is, lost otherwise.
func Outcome(b *api.Board, youID string) string {
	for _, snake := range b.Snakes {
		if snake.ID == youID {
			return store.ResultWon
		}
	}
	if len(b.Snakes) == 0 {
		return store.ResultDraw
	}
	return store.ResultLost
}

func (s *Server) record(ctx context.Context, logger *slog.Logger, req *api.GameRequest, snapshot *game.Snapshot, plan planner.Plan, elapsed time.Duration) {
	if s.registry != nil {
		if err := s.registry.RecordTurn(ctx, req.Game.ID, req.You.ID, req.Turn); err != nil {
			logger.Error("registry turn", "err", err)
		}
	}
	if s.archive == nil {
		return
	}
	board, err := api.MarshalBoard(&req.Board)
	if err != nil {
		logger.Error("archive board", "err", err)
		return
	}
	s.archive.Record(store.DecisionRow{
		GameID:    req.Game.ID,
		Turn:      int32(req.Turn),
		SnakeID:   req.You.ID,
		Width:     int32(snapshot.Width),
		Height:    int32(snapshot.Height),
		Board:     board,
		Move:      int32(plan.Move),
		Score:     plan.Score,
		Scores:    append([]float64(nil), plan.Scores[:]...),
		Depth:     int32(s.planner.Config().Depth),
		Opponents: int32(len(snapshot.Opponents)),
		Nodes:     int64(plan.Nodes),
		ElapsedUS: elapsed.Microseconds(),
		Source:    "server",
		Actual:    -1,
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := api.Encode(w, v); err != nil {
		logger.Error("write response", "err", err)
	}
}
