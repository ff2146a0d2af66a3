package viewer

import (
	"github.com/goccy/go-json"
)

// GameSummary aggregates the archived decisions of one game.
type GameSummary struct {
	GameID    string `json:"game_id"`
	MinTurn   int32  `json:"min_turn"`
	MaxTurn   int32  `json:"max_turn"`
	Width     int32  `json:"width"`
	Height    int32  `json:"height"`
	Source    string `json:"source"`
	Snakes    int64  `json:"snakes"`
	Decisions int64  `json:"decisions"`
	// Agreement is the share of decisions whose recorded actual move matched,
	// over decisions with a known actual move.
	Agreement  float64 `json:"agreement"`
	Results    string  `json:"results"`
	SourceFile string  `json:"file"`
}

type GamesResponse struct {
	Total int64         `json:"total"`
	Games []GameSummary `json:"games"`
}

// Decision is one archived row with the board left as raw JSON.
type Decision struct {
	Turn      int32           `json:"turn"`
	SnakeID   string          `json:"snake_id"`
	Move      string          `json:"move"`
	Actual    string          `json:"actual,omitempty"`
	Score     float64         `json:"score"`
	Scores    []float64       `json:"scores"`
	Depth     int32           `json:"depth"`
	Nodes     int64           `json:"nodes"`
	ElapsedUS int64           `json:"elapsed_us"`
	Result    string          `json:"result,omitempty"`
	Board     json.RawMessage `json:"board"`
}

type DecisionsResponse struct {
	GameID    string     `json:"game_id"`
	Decisions []Decision `json:"decisions"`
}

// SourceStats summarises every decision from one source.
type SourceStats struct {
	Source       string  `json:"source"`
	Games        int64   `json:"games"`
	Decisions    int64   `json:"decisions"`
	Agreement    float64 `json:"agreement"`
	AvgNodes     float64 `json:"avg_nodes"`
	AvgElapsedUS float64 `json:"avg_elapsed_us"`
}

type StatsResponse struct {
	Sources []SourceStats `json:"sources"`
}

// PlanResponse is the result of planning a posted board.
type PlanResponse struct {
	Move   string             `json:"move"`
	Score  float64            `json:"score"`
	Scores map[string]float64 `json:"scores"`
	Nodes  int                `json:"nodes"`
	Depth  int                `json:"depth"`
}
