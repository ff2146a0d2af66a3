package viewer

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/brensch/snekplan/api"
	"github.com/brensch/snekplan/game"
	"github.com/brensch/snekplan/planner"
	"github.com/brensch/snekplan/store"
)

// MaxPlanDepth bounds the depth a client may request from /api/plan.
const MaxPlanDepth = 6

// Server holds shared state for the HTTP handlers. Cache and Registry may be
// nil, in which case their routes answer 503.
type Server struct {
	cache    *DBCache
	registry *store.Registry
	planner  planner.Config
	logger   *slog.Logger
}

func NewServer(cache *DBCache, registry *store.Registry, cfg planner.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cache: cache, registry: registry, planner: cfg, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", s.handleGames)
	mux.HandleFunc("GET /api/games/{id}/decisions", s.handleDecisions)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("POST /api/plan", s.handlePlan)
	mux.HandleFunc("OPTIONS /api/", func(w http.ResponseWriter, r *http.Request) {})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		withCORS(w)
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		http.Error(w, "no decision archive configured", http.StatusServiceUnavailable)
		return
	}
	games, err := s.cache.GamesIndex(r.Context())
	if err != nil {
		s.logger.Error("games index", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, GamesResponse{
		Total: int64(len(games)),
		Games: paginate(games, limit, offset, q.Get("sort"), q.Get("dir")),
	})
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		http.Error(w, "no decision archive configured", http.StatusServiceUnavailable)
		return
	}
	db, err := s.cache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id := r.PathValue("id")
	decisions, err := queryDecisions(r.Context(), db, id)
	if err != nil {
		s.logger.Error("decisions", "game", id, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(decisions) == 0 {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, DecisionsResponse{GameID: id, Decisions: decisions})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		http.Error(w, "no decision archive configured", http.StatusServiceUnavailable)
		return
	}
	db, err := s.cache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := queryStats(r.Context(), db)
	if err != nil {
		s.logger.Error("stats", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Sources: stats})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		http.Error(w, "no registry configured", http.StatusServiceUnavailable)
		return
	}
	results, err := s.registry.Results(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// PlanRequest asks for a plan on a wire board. Depth 0 or less uses the
// server's configured depth.
type PlanRequest struct {
	Board api.Board `json:"board"`
	You   string    `json:"you"`
	Depth int       `json:"depth"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "decode plan request: "+err.Error(), http.StatusBadRequest)
		return
	}
	cfg := s.planner
	if req.Depth > 0 {
		cfg.Depth = req.Depth
	}
	if cfg.Depth > MaxPlanDepth {
		http.Error(w, "depth too large", http.StatusBadRequest)
		return
	}

	snapshot, err := api.ToSnapshot(&req.Board, req.You)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, api.ErrPlayerNotFound) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	p, err := planner.New(cfg, s.logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	plan, err := p.Plan(r.Context(), snapshot)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.logger.Info("viewer plan", "you", req.You, "depth", cfg.Depth, "move", plan.Move.String(), "elapsed", time.Since(start))

	scores := make(map[string]float64, game.NumMoves)
	for _, m := range game.Moves {
		scores[m.String()] = plan.Scores[m]
	}
	writeJSON(w, http.StatusOK, PlanResponse{
		Move:   plan.Move.String(),
		Score:  plan.Score,
		Scores: scores,
		Nodes:  plan.Nodes,
		Depth:  cfg.Depth,
	})
}
