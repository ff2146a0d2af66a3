// Command selfplay pits planners against each other on a local referee and
// writes every decision to parquet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/profile"

	"github.com/brensch/snekplan/config"
	"github.com/brensch/snekplan/inference"
	"github.com/brensch/snekplan/logging"
	"github.com/brensch/snekplan/selfplay"
	"github.com/brensch/snekplan/store"
)

func main() {
	outDir := flag.String("out-dir", config.EnvOrDefault("OUT_DIR", "data/selfplay"), "Output directory for decision parquet batches")
	workers := flag.Int("workers", config.EnvInt("WORKERS", 4), "Concurrent games")
	maxGames := flag.Int64("max-games", int64(config.EnvInt("MAX_GAMES", 0)), "Stop after this many games (0 = until interrupted)")
	gamesPerFlush := flag.Int("games-per-flush", config.EnvInt("FLUSH_GAMES", 50), "Games per parquet file")
	depth := flag.Int("depth", config.EnvInt("SEARCH_DEPTH", 2), "Search depth in plies")
	snakes := flag.Int("snakes", config.EnvInt("SNAKES", 2), "Snakes per game")
	width := flag.Int("width", 11, "Board width")
	height := flag.Int("height", 11, "Board height")
	maxTurns := flag.Int("max-turns", 500, "Turn limit per game")
	modelPath := flag.String("model-path", config.EnvOrDefault("MODEL_PATH", ""), "ONNX value network (empty = constant horizon)")
	registryPath := flag.String("registry", config.EnvOrDefault("REGISTRY_DB", ""), "SQLite registry for game outcomes (empty = disabled)")
	noTUI := flag.Bool("no-tui", config.EnvBool("NO_TUI", false), "Log progress lines instead of the live view")
	trace := flag.Bool("trace", false, "Log the board every turn of worker 0")
	logFormat := flag.String("log-format", config.EnvOrDefault("LOG_FORMAT", "text"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOrDefault("LOG_LEVEL", "info"), "Log level")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the working directory")
	flag.Parse()

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatalf("unknown profile mode %q", *profileMode)
	}

	// The live view owns the terminal; logs go to a file instead.
	logOut := os.Stderr
	if !*noTUI {
		f, err := os.OpenFile("selfplay.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(logger)

	base := selfplay.DefaultConfig()
	base.Width, base.Height = *width, *height
	base.Snakes = *snakes
	base.MaxTurns = *maxTurns
	base.Planner.Depth = *depth
	if *modelPath != "" {
		net, err := inference.NewValueNet(*modelPath, base.Planner.LoseValue, base.Planner.WinValue, logger)
		if err != nil {
			log.Fatalf("load value network: %v", err)
		}
		defer net.Close()
		base.Planner.Heuristic = net
	}
	if err := base.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	var registry *store.Registry
	if *registryPath != "" {
		registry, err = store.OpenRegistry(*registryPath)
		if err != nil {
			log.Fatalf("open registry: %v", err)
		}
		defer registry.Close()
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	results := make(chan gameUpdate, *workers)
	updates := make(chan gameUpdate, *workers)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(*outDir, *gamesPerFlush, registry, logger, results, updates)
	}()

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for ctx.Err() == nil {
				cfg := base
				cfg.Verbose = *trace && worker == 0
				cfg.Logf = func(format string, args ...any) { logger.Info(fmt.Sprintf(format, args...)) }

				res, err := selfplay.PlayGame(ctx, cfg, func(int) { totalTurns.Add(1) })
				if err != nil {
					if ctx.Err() == nil {
						logger.Error("game failed", "worker", worker, "err", err)
					}
					return
				}
				results <- gameUpdate{Worker: worker, Result: res}
				if n := totalGames.Add(1); *maxGames > 0 && n >= *maxGames {
					cancel()
				}
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	if *noTUI {
		for u := range updates {
			logger.Info("game finished",
				"worker", u.Worker,
				"game", u.Result.GameID,
				"winner", u.Result.Winner,
				"turns", u.Result.Turns,
				"decisions", len(u.Result.Rows),
			)
		}
	} else {
		if _, err := tea.NewProgram(newModel(updates, cancel)).Run(); err != nil {
			logger.Error("tui", "err", err)
		}
		cancel()
		for range updates {
		}
	}
	<-writerDone
	logger.Info("selfplay stopped", "games", totalGames.Load(), "turns", totalTurns.Load())
}

// writeLoop streams finished games into parquet batches and forwards each
// game to the progress display.
func writeLoop(outDir string, gamesPerFlush int, registry *store.Registry, logger *slog.Logger, in <-chan gameUpdate, out chan<- gameUpdate) {
	defer close(out)
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var w *store.BatchWriter
	finalize := func() {
		if w == nil {
			return
		}
		path, err := w.Finalize()
		if err != nil {
			logger.Error("parquet flush failed", "games", w.Games(), "rows", w.Rows(), "err", err)
		} else if path != "" {
			logger.Info("parquet flush ok", "path", path, "games", w.Games(), "rows", w.Rows())
		}
		w = nil
	}
	defer finalize()

	for u := range in {
		if w == nil {
			var err error
			if w, err = store.NewBatchWriter(outDir); err != nil {
				logger.Error("open batch", "err", err)
				out <- u
				continue
			}
		}
		if err := w.WriteGame(u.Result.Rows); err != nil {
			logger.Error("write game", "game", u.Result.GameID, "err", err)
		}
		if registry != nil {
			recordGame(registry, u.Result, logger)
		}
		if w.Games() >= gamesPerFlush {
			finalize()
		}
		out <- u
	}
}

// recordGame stores the outcome from snake1's point of view.
func recordGame(registry *store.Registry, res selfplay.Result, logger *slog.Logger) {
	ctx := context.Background()
	const you = "snake1"
	if err := registry.StartGame(ctx, store.GameRecord{ID: res.GameID, Ruleset: "selfplay", Map: "standard", YouID: you}); err != nil {
		logger.Error("registry start", "game", res.GameID, "err", err)
		return
	}
	result := store.ResultDraw
	for _, r := range res.Rows {
		if r.SnakeID == you {
			result = r.Result
			break
		}
	}
	if err := registry.EndGame(ctx, res.GameID, res.Turns, result, time.Now()); err != nil {
		logger.Error("registry end", "game", res.GameID, "err", err)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
