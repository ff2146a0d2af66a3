// Package viewer serves a read-only HTTP API over archived planner decisions.
package viewer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DBCache keeps a DuckDB view over every decision parquet file under the
// roots and reopens it once refreshRate has passed, so new batches show up.
type DBCache struct {
	roots       []string
	refreshRate time.Duration
	logger      *slog.Logger

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time
	gamesIndex  []GameSummary
}

func NewDBCache(roots []string, refreshRate time.Duration, logger *slog.Logger) *DBCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBCache{roots: roots, refreshRate: refreshRate, logger: logger}
}

// Get returns the cached connection, reopening it when stale.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()
	db, err := openDuckDB(c.roots)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = db
	c.lastRefresh = time.Now()
	c.gamesIndex = nil
	c.logger.Debug("duckdb view refreshed", "elapsed", time.Since(start))
	return c.db, nil
}

// GamesIndex returns every game summary. It is rebuilt only after the view is
// refreshed.
func (c *DBCache) GamesIndex(ctx context.Context) ([]GameSummary, error) {
	db, err := c.Get()
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.gamesIndex != nil {
		idx := c.gamesIndex
		c.mu.RUnlock()
		return idx, nil
	}
	c.mu.RUnlock()

	games, err := queryGames(ctx, db, c.roots)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.gamesIndex = games
	c.mu.Unlock()
	return games, nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// openDuckDB creates an in-memory database with a decisions view over the
// parquet globs of every root. Files still in a tmp directory are excluded.
func openDuckDB(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		if root = strings.TrimSpace(root); root == "" {
			continue
		}
		globs = append(globs, "'"+escapeSQLString(filepath.Join(root, "**", "*.parquet"))+"'")
	}

	var view string
	if len(globs) == 0 {
		view = `CREATE OR REPLACE VIEW decisions AS
			SELECT * FROM (
				SELECT
					NULL::VARCHAR AS game_id,
					NULL::INTEGER AS turn,
					NULL::VARCHAR AS snake_id,
					NULL::INTEGER AS width,
					NULL::INTEGER AS height,
					NULL::BLOB AS board,
					NULL::INTEGER AS move,
					NULL::DOUBLE AS score,
					NULL::DOUBLE[] AS scores,
					NULL::INTEGER AS depth,
					NULL::INTEGER AS opponents,
					NULL::BIGINT AS nodes,
					NULL::BIGINT AS elapsed_us,
					NULL::VARCHAR AS source,
					NULL::VARCHAR AS result,
					NULL::INTEGER AS actual,
					NULL::VARCHAR AS filename
			) WHERE 1=0`
	} else {
		view = `CREATE OR REPLACE VIEW decisions AS
			SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
			WHERE NOT contains(filename, '/tmp/')`
	}
	if _, err := db.Exec(view); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create decisions view: %w", err)
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func queryGames(ctx context.Context, db *sql.DB, roots []string) ([]GameSummary, error) {
	const query = `SELECT
			game_id,
			MIN(turn)::INTEGER,
			MAX(turn)::INTEGER,
			MIN(width)::INTEGER,
			MIN(height)::INTEGER,
			MIN(source)::VARCHAR,
			COUNT(DISTINCT snake_id),
			COUNT(*),
			COALESCE(AVG(CASE WHEN actual >= 0 THEN (move = actual)::INTEGER END), 0)::DOUBLE,
			COALESCE(string_agg(DISTINCT snake_id || ':' || result, ' '), '')::VARCHAR,
			MIN(filename)::VARCHAR
		FROM decisions
		GROUP BY game_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		var file string
		if err := rows.Scan(&g.GameID, &g.MinTurn, &g.MaxTurn, &g.Width, &g.Height, &g.Source,
			&g.Snakes, &g.Decisions, &g.Agreement, &g.Results, &file); err != nil {
			return nil, err
		}
		g.SourceFile = relativeToRoots(file, roots)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

func queryDecisions(ctx context.Context, db *sql.DB, gameID string) ([]Decision, error) {
	const query = `SELECT turn, snake_id, move, actual, score, scores, depth, nodes, elapsed_us, result, board
		FROM decisions
		WHERE game_id = ?
		ORDER BY turn, snake_id`

	rows, err := db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			d            Decision
			move, actual int32
			scores       any
			result       sql.NullString
			board        []byte
		)
		if err := rows.Scan(&d.Turn, &d.SnakeID, &move, &actual, &d.Score, &scores, &d.Depth,
			&d.Nodes, &d.ElapsedUS, &result, &board); err != nil {
			return nil, err
		}
		d.Move = moveName(move)
		if actual >= 0 {
			d.Actual = moveName(actual)
		}
		d.Scores = asFloat64Slice(scores)
		d.Result = result.String
		d.Board = board
		out = append(out, d)
	}
	return out, rows.Err()
}

func queryStats(ctx context.Context, db *sql.DB) ([]SourceStats, error) {
	const query = `SELECT
			source,
			COUNT(DISTINCT game_id),
			COUNT(*),
			COALESCE(AVG(CASE WHEN actual >= 0 THEN (move = actual)::INTEGER END), 0)::DOUBLE,
			COALESCE(AVG(nodes), 0)::DOUBLE,
			COALESCE(AVG(elapsed_us), 0)::DOUBLE
		FROM decisions
		GROUP BY source
		ORDER BY source`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []SourceStats
	for rows.Next() {
		var s SourceStats
		if err := rows.Scan(&s.Source, &s.Games, &s.Decisions, &s.Agreement, &s.AvgNodes, &s.AvgElapsedUS); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func relativeToRoots(filename string, roots []string) string {
	best := filename
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(absRoot, filename); err == nil && !strings.HasPrefix(rel, "..") && len(rel) < len(best) {
			best = rel
		}
	}
	return best
}
