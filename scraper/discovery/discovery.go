// Package discovery crawls Battlesnake leaderboards for recent game ids.
package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "snekplan-replay/1.0"

// Config holds discovery configuration.
type Config struct {
	// BaseURL is prefixed to relative player links.
	BaseURL      string
	Leaderboards []string      // leaderboard paths, e.g. /leaderboard/standard
	RequestDelay time.Duration // pause between requests
	MaxPlayers   int           // per leaderboard, 0 = unlimited
}

func DefaultConfig() Config {
	return Config{
		BaseURL: "https://play.battlesnake.com",
		Leaderboards: []string{
			"/leaderboard/standard",
			"/leaderboard/standard-duels",
		},
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   25,
	}
}

var (
	gameIDRe = regexp.MustCompile(`/game/([a-f0-9-]+)`)
	// /leaderboard/{arena}/{username}/stats
	playerRe = regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`)
)

// Player is one leaderboard entry.
type Player struct {
	Name     string
	StatsURL string
}

// Crawler finds game ids. Known ids are skipped.
type Crawler struct {
	cfg    Config
	client *http.Client
	known  func(id string) bool
	logger *slog.Logger
}

func New(cfg Config, known func(string) bool, logger *slog.Logger) *Crawler {
	if known == nil {
		known = func(string) bool { return false }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		known:  known,
		logger: logger.With("component", "discovery"),
	}
}

// Discover sends every new game id to out and returns how many were sent.
// Errors on a single player or leaderboard are logged and skipped.
func (c *Crawler) Discover(ctx context.Context, out chan<- string) (int, error) {
	sent := 0
	seen := make(map[string]bool)
	for _, board := range c.cfg.Leaderboards {
		players, err := c.Players(ctx, board)
		if err != nil {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			c.logger.Warn("leaderboard failed", "leaderboard", board, "err", err)
			continue
		}
		if c.cfg.MaxPlayers > 0 && len(players) > c.cfg.MaxPlayers {
			players = players[:c.cfg.MaxPlayers]
		}
		c.logger.Info("leaderboard", "leaderboard", board, "players", len(players))

		for _, p := range players {
			ids, err := c.Games(ctx, p.StatsURL)
			if err != nil {
				if ctx.Err() != nil {
					return sent, ctx.Err()
				}
				c.logger.Warn("player failed", "player", p.Name, "err", err)
				continue
			}
			for _, id := range ids {
				if seen[id] || c.known(id) {
					continue
				}
				seen[id] = true
				select {
				case out <- id:
					sent++
				case <-ctx.Done():
					return sent, ctx.Err()
				}
			}
			if err := sleep(ctx, c.cfg.RequestDelay); err != nil {
				return sent, err
			}
		}
	}
	c.logger.Info("discovery complete", "new_games", sent)
	return sent, nil
}

// Players lists the players on one leaderboard page.
func (c *Crawler) Players(ctx context.Context, path string) ([]Player, error) {
	doc, err := c.fetch(ctx, c.resolve(path))
	if err != nil {
		return nil, err
	}
	return ParsePlayers(doc, c.cfg.BaseURL), nil
}

// Games lists the game ids linked from a player's stats page.
func (c *Crawler) Games(ctx context.Context, statsURL string) ([]string, error) {
	doc, err := c.fetch(ctx, statsURL)
	if err != nil {
		return nil, err
	}
	return ParseGameIDs(doc), nil
}

func (c *Crawler) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	u, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return c.cfg.BaseURL + path
	}
	return u
}

func (c *Crawler) fetch(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// ParsePlayers extracts unique player stats links in page order.
func ParsePlayers(doc *goquery.Document, baseURL string) []Player {
	var players []Player
	seen := make(map[string]bool)
	doc.Find("a[href*='/leaderboard/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := playerRe.FindStringSubmatch(href)
		if len(m) < 2 || seen[m[1]] {
			return
		}
		seen[m[1]] = true
		statsURL := href
		if strings.HasPrefix(href, "/") {
			statsURL = strings.TrimRight(baseURL, "/") + href
		}
		players = append(players, Player{Name: m[1], StatsURL: statsURL})
	})
	return players
}

// ParseGameIDs extracts unique game ids in page order.
func ParseGameIDs(doc *goquery.Document) []string {
	var ids []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := gameIDRe.FindStringSubmatch(href)
		if len(m) < 2 || seen[m[1]] {
			return
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	})
	return ids
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
