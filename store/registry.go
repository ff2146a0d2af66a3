package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrGameNotFound is returned by Registry.Game for unknown ids.
var ErrGameNotFound = errors.New("game not found")

// Game outcomes from the controlled snake's point of view.
const (
	ResultWon  = "won"
	ResultLost = "lost"
	ResultDraw = "draw"
)

// GameRecord is one row of the games table.
type GameRecord struct {
	ID        string
	Ruleset   string
	Map       string
	TimeoutMS int
	YouID     string
	StartedAt time.Time
	// EndedAt is zero while the game is running.
	EndedAt time.Time
	Turns   int
	Result  string
}

// Registry records the lifecycle of every game the server plays.
type Registry struct {
	conn *sql.DB
	mu   sync.Mutex
}

// OpenRegistry opens or creates the sqlite database at path.
func OpenRegistry(path string) (*Registry, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	r := &Registry{conn: conn}
	if err := r.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) initSchema() error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA synchronous = NORMAL;

	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		ruleset TEXT NOT NULL DEFAULT '',
		map TEXT NOT NULL DEFAULT '',
		timeout_ms INTEGER NOT NULL DEFAULT 0,
		you_id TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,   -- unix millis
		ended_at INTEGER,              -- unix millis, NULL while running
		turns INTEGER NOT NULL DEFAULT 0,
		result TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_games_result ON games(result);
	`

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// StartGame inserts g. Starting a known game again is a no-op.
func (r *Registry) StartGame(ctx context.Context, g GameRecord) error {
	if g.StartedAt.IsZero() {
		g.StartedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO games (id, ruleset, map, timeout_ms, you_id, started_at, turns)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Ruleset, g.Map, g.TimeoutMS, g.YouID, g.StartedAt.UnixMilli(), g.Turns,
	)
	if err != nil {
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}
	return nil
}

// RecordTurn raises the turn count of a running game. Games that were never
// started are created on the fly so a restarted server keeps counting.
func (r *Registry) RecordTurn(ctx context.Context, id, youID string, turn int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO games (id, you_id, started_at, turns) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET turns = MAX(turns, excluded.turns)`,
		id, youID, time.Now().UnixMilli(), turn,
	)
	if err != nil {
		return fmt.Errorf("record turn %d of %s: %w", turn, id, err)
	}
	return nil
}

// EndGame stores the outcome of a game.
func (r *Registry) EndGame(ctx context.Context, id string, turns int, result string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO games (id, started_at, ended_at, turns, result) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET ended_at = excluded.ended_at,
		 	turns = MAX(turns, excluded.turns), result = excluded.result`,
		id, at.UnixMilli(), at.UnixMilli(), turns, result,
	)
	if err != nil {
		return fmt.Errorf("end game %s: %w", id, err)
	}
	return nil
}

func (r *Registry) Game(ctx context.Context, id string) (GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		g       GameRecord
		started int64
		ended   sql.NullInt64
	)
	err := r.conn.QueryRowContext(ctx,
		`SELECT id, ruleset, map, timeout_ms, you_id, started_at, ended_at, turns, result
		 FROM games WHERE id = ?`, id,
	).Scan(&g.ID, &g.Ruleset, &g.Map, &g.TimeoutMS, &g.YouID, &started, &ended, &g.Turns, &g.Result)
	if errors.Is(err, sql.ErrNoRows) {
		return GameRecord{}, fmt.Errorf("%s: %w", id, ErrGameNotFound)
	}
	if err != nil {
		return GameRecord{}, fmt.Errorf("query game %s: %w", id, err)
	}
	g.StartedAt = time.UnixMilli(started)
	if ended.Valid {
		g.EndedAt = time.UnixMilli(ended.Int64)
	}
	return g, nil
}

// Results counts ended games by result.
func (r *Registry) Results(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.conn.QueryContext(ctx,
		`SELECT result, COUNT(*) FROM games WHERE ended_at IS NOT NULL GROUP BY result`)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			result string
			n      int
		)
		if err := rows.Scan(&result, &n); err != nil {
			return nil, err
		}
		out[result] = n
	}
	return out, rows.Err()
}

func (r *Registry) Close() error {
	return r.conn.Close()
}
