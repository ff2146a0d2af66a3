// Package downloader streams recorded games from the Battlesnake engine over
// its websocket event feed.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/brensch/snekplan/api"
)

// Config holds downloader configuration.
type Config struct {
	Workers        int
	EngineURL      string // websocket URL template taking the game id
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:        4,
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// Stats counts download outcomes.
type Stats struct {
	Downloaded int64
	Failed     int64
	Frames     int64
}

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type GameInfo struct {
	Game    GameDetails `json:"game"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type GameDetails struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Timeout int    `json:"timeout"`
	Map     string `json:"map"`
}

type RulesetInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Frame is one turn of the event feed.
type Frame struct {
	Turn    int         `json:"turn"`
	Snakes  []SnakeData `json:"snakes"`
	Food    []api.Coord `json:"food"`
	Hazards []api.Coord `json:"hazards"`
}

type SnakeData struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Health  int         `json:"health"`
	Body    []api.Coord `json:"body"`
	Latency string      `json:"latency"`
	Author  string      `json:"author,omitempty"`
	Death   *Death      `json:"death,omitempty"`
}

type Death struct {
	Cause string `json:"cause"`
	Turn  int    `json:"turn"`
}

// Game is a fully downloaded game, frames in turn order.
type Game struct {
	Info   GameInfo
	Frames []Frame
}

// Board converts frame to the wire board the engine would have sent on that
// turn. Eliminated snakes are left out.
func (g *Game) Board(frame *Frame) api.Board {
	b := api.Board{
		Width:   g.Info.Game.Width,
		Height:  g.Info.Game.Height,
		Food:    frame.Food,
		Hazards: frame.Hazards,
	}
	for _, s := range frame.Snakes {
		if s.Death != nil || len(s.Body) == 0 {
			continue
		}
		b.Snakes = append(b.Snakes, api.Battlesnake{
			ID:      s.ID,
			Name:    s.Name,
			Health:  s.Health,
			Body:    s.Body,
			Head:    s.Body[0],
			Length:  len(s.Body),
			Latency: s.Latency,
		})
	}
	return b
}

// Downloader fetches games from the engine.
type Downloader struct {
	cfg    Config
	logger *slog.Logger
	stats  Stats
}

func New(cfg Config, logger *slog.Logger) *Downloader {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{cfg: cfg, logger: logger.With("component", "downloader")}
}

// Run downloads every id from ids with a pool of workers and passes each
// game to handle. It returns when ids is closed or ctx ends.
func (d *Downloader) Run(ctx context.Context, ids <-chan string, handle func(*Game) error) {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id, ok := <-ids:
					if !ok {
						return
					}
					d.one(ctx, worker, id, handle)
				}
			}
		}(i)
	}
	wg.Wait()
}

func (d *Downloader) one(ctx context.Context, worker int, id string, handle func(*Game) error) {
	g, err := d.Download(ctx, id)
	if err != nil {
		atomic.AddInt64(&d.stats.Failed, 1)
		d.logger.Warn("download failed", "worker", worker, "game", id, "err", err)
		return
	}
	atomic.AddInt64(&d.stats.Downloaded, 1)
	atomic.AddInt64(&d.stats.Frames, int64(len(g.Frames)))
	if err := handle(g); err != nil {
		d.logger.Error("handle game", "worker", worker, "game", id, "err", err)
	}
}

// Download reads the event feed of one game until it ends.
func (d *Downloader) Download(ctx context.Context, gameID string) (*Game, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf(d.cfg.EngineURL, gameID), nil)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	g := &Game{}
	for {
		if d.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(d.cfg.ReadTimeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || len(g.Frames) > 0 {
				break
			}
			return nil, fmt.Errorf("read: %w", err)
		}

		done, err := g.apply(msg)
		if err != nil {
			d.logger.Debug("skip event", "game", gameID, "err", err)
			continue
		}
		if done {
			break
		}
	}

	if len(g.Frames) == 0 {
		return nil, errors.New("no frames received")
	}
	if g.Info.Game.ID == "" {
		g.Info.Game.ID = gameID
	}
	return g, nil
}

// apply folds one raw event into g and reports whether the game ended.
func (g *Game) apply(msg []byte) (bool, error) {
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		return false, fmt.Errorf("parse event: %w", err)
	}
	switch ev.Type {
	case "game_info":
		if err := json.Unmarshal(ev.Data, &g.Info); err != nil {
			return false, fmt.Errorf("parse game_info: %w", err)
		}
	case "frame":
		var f Frame
		if err := json.Unmarshal(ev.Data, &f); err != nil {
			return false, fmt.Errorf("parse frame: %w", err)
		}
		g.Frames = append(g.Frames, f)
	case "game_end":
		return true, nil
	}
	return false, nil
}

// Winner is the name of the only snake alive in the last frame, or empty.
func (g *Game) Winner() string {
	if len(g.Frames) == 0 {
		return ""
	}
	var alive []SnakeData
	for _, s := range g.Frames[len(g.Frames)-1].Snakes {
		if s.Death == nil && s.Health > 0 {
			alive = append(alive, s)
		}
	}
	if len(alive) == 1 {
		return alive[0].ID
	}
	return ""
}

func (d *Downloader) Stats() Stats {
	return Stats{
		Downloaded: atomic.LoadInt64(&d.stats.Downloaded),
		Failed:     atomic.LoadInt64(&d.stats.Failed),
		Frames:     atomic.LoadInt64(&d.stats.Frames),
	}
}
