// Command replay downloads recorded games, re-plans every turn and reports
// how often the planner agrees with the moves that were actually played.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brensch/snekplan/config"
	"github.com/brensch/snekplan/inference"
	"github.com/brensch/snekplan/logging"
	"github.com/brensch/snekplan/planner"
	"github.com/brensch/snekplan/replay"
	"github.com/brensch/snekplan/scraper/discovery"
	"github.com/brensch/snekplan/scraper/downloader"
	"github.com/brensch/snekplan/store"
)

func main() {
	gameIDs := flag.String("games", "", "Comma separated game ids to replay (empty = crawl leaderboards)")
	outDir := flag.String("out-dir", config.EnvOrDefault("OUT_DIR", ""), "Write replayed decisions as parquet here (empty = report only)")
	logPath := flag.String("log-path", config.EnvOrDefault("REPLAYED_LOG", "replay-data/replayed_games.log"), "Append-only log of game ids already replayed")
	flushGames := flag.Int("flush-games", config.EnvInt("FLUSH_GAMES", 100), "Games per parquet file")
	maxPlayers := flag.Int("max-players", config.EnvInt("MAX_PLAYERS", 25), "Players to crawl per leaderboard")
	requestDelay := flag.Duration("delay", config.EnvDuration("DELAY", 500*time.Millisecond), "Delay between HTTP requests")
	workers := flag.Int("workers", config.EnvInt("WORKERS", 4), "Concurrent downloads")
	depth := flag.Int("depth", config.EnvInt("SEARCH_DEPTH", 2), "Search depth in plies")
	snakes := flag.String("snakes", "", "Comma separated snake ids to replay (empty = all)")
	modelPath := flag.String("model-path", config.EnvOrDefault("MODEL_PATH", ""), "ONNX value network (empty = constant horizon)")
	logFormat := flag.String("log-format", config.EnvOrDefault("LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOrDefault("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logger, err := logging.New(os.Stdout, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(logger)

	cfg := planner.DefaultConfig()
	cfg.Depth = *depth
	if *modelPath != "" {
		net, err := inference.NewValueNet(*modelPath, cfg.LoseValue, cfg.WinValue, logger)
		if err != nil {
			log.Fatalf("load value network: %v", err)
		}
		defer net.Close()
		cfg.Heuristic = net
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("planner config: %v", err)
	}
	opts := replay.Options{Planner: cfg, Snakes: splitList(*snakes)}

	seen, err := store.OpenIDLog(*logPath)
	if err != nil {
		log.Fatalf("open replay log: %v", err)
	}
	defer seen.Close()
	logger.Info("starting replay", "depth", cfg.Depth, "already_replayed", seen.Len(), "out_dir", *outDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids := make(chan string, 1000)
	if list := splitList(*gameIDs); len(list) > 0 {
		go func() {
			defer close(ids)
			for _, id := range list {
				select {
				case ids <- id:
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		dc := discovery.DefaultConfig()
		dc.MaxPlayers = *maxPlayers
		dc.RequestDelay = *requestDelay
		crawler := discovery.New(dc, seen.Has, logger)
		go func() {
			defer close(ids)
			n, err := crawler.Discover(ctx, ids)
			if err != nil && ctx.Err() == nil {
				logger.Error("discovery failed", "err", err)
			}
			logger.Info("discovery finished", "games", n)
		}()
	}

	dlc := downloader.DefaultConfig()
	dlc.Workers = *workers
	dl := downloader.New(dlc, logger)

	var (
		mu      sync.Mutex
		total   replay.Report
		pending []store.DecisionRow
		games   int
	)
	flush := func(reason string) {
		if *outDir == "" || len(pending) == 0 {
			return
		}
		path, err := store.WriteDecisionsAtomic(*outDir, pending)
		if err != nil {
			logger.Error("parquet flush failed", "reason", reason, "rows", len(pending), "err", err)
			return
		}
		logger.Info("parquet flush ok", "reason", reason, "path", path, "games", games, "rows", len(pending))
		pending = pending[:0]
		games = 0
	}

	dl.Run(ctx, ids, func(g *downloader.Game) error {
		rep, err := replay.Game(ctx, g, opts)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		total.Decisions += rep.Decisions
		total.Agreed += rep.Agreed
		total.Skipped += rep.Skipped
		pending = append(pending, rep.Rows...)
		games++
		if games >= *flushGames {
			flush("count")
		}
		if err := seen.Add(rep.GameID); err != nil {
			logger.Warn("replay log append failed", "game", rep.GameID, "err", err)
		}
		logger.Info("game replayed",
			"game", rep.GameID,
			"winner", g.Winner(),
			"decisions", rep.Decisions,
			"agreed", rep.Agreed,
			"skipped", rep.Skipped,
			"agreement", rep.Agreement(),
		)
		return nil
	})

	mu.Lock()
	flush("final")
	mu.Unlock()

	st := dl.Stats()
	logger.Info("replay complete",
		"downloaded", st.Downloaded,
		"failed", st.Failed,
		"frames", st.Frames,
		"decisions", total.Decisions,
		"agreed", total.Agreed,
		"skipped", total.Skipped,
		"agreement", total.Agreement(),
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
