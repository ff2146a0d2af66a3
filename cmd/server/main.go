// Command server runs the Battlesnake HTTP API backed by the expectation
// search planner.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/snekplan/config"
	"github.com/brensch/snekplan/inference"
	"github.com/brensch/snekplan/logging"
	"github.com/brensch/snekplan/planner"
	"github.com/brensch/snekplan/server"
	"github.com/brensch/snekplan/store"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", config.EnvOrDefault("LISTEN", ":8080"), "HTTP listen address")
	depth := fs.Int("depth", config.EnvInt("SEARCH_DEPTH", planner.DefaultDepth), "Search depth in plies")
	logFormat := fs.String("log-format", config.EnvOrDefault("LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := fs.String("log-level", config.EnvOrDefault("LOG_LEVEL", "info"), "Log level")
	modelPath := fs.String("model-path", config.EnvOrDefault("MODEL_PATH", ""), "ONNX value network for the horizon score (empty = constant)")
	archiveDir := fs.String("archive-dir", config.EnvOrDefault("ARCHIVE_DIR", ""), "Directory for decision parquet files (empty = disabled)")
	registryPath := fs.String("registry", config.EnvOrDefault("REGISTRY_DB", ""), "SQLite game registry path (empty = disabled)")
	flushGames := fs.Int("flush-games", config.EnvInt("FLUSH_GAMES", 50), "Ended games per archive flush")
	shutdownTimeout := fs.Duration("shutdown-timeout", config.EnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second), "Grace period for in-flight requests")
	author := fs.String("author", config.EnvOrDefault("SNAKE_AUTHOR", "snekplan"), "Snake author")
	color := fs.String("color", config.EnvOrDefault("SNAKE_COLOR", "#00ff00"), "Snake color")
	head := fs.String("head", config.EnvOrDefault("SNAKE_HEAD", "default"), "Snake head")
	tail := fs.String("tail", config.EnvOrDefault("SNAKE_TAIL", "default"), "Snake tail")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
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
	p, err := planner.New(cfg, logger)
	if err != nil {
		log.Fatalf("planner: %v", err)
	}

	opts := []server.Option{server.WithLogger(logger)}
	if *archiveDir != "" {
		archive := store.NewArchive(*archiveDir, *flushGames, logger)
		defer func() {
			if err := archive.Close(); err != nil {
				logger.Error("archive close", "err", err)
			}
		}()
		opts = append(opts, server.WithArchive(archive))
	}
	if *registryPath != "" {
		reg, err := store.OpenRegistry(*registryPath)
		if err != nil {
			log.Fatalf("open registry: %v", err)
		}
		defer reg.Close()
		opts = append(opts, server.WithRegistry(reg))
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.New(p, server.Info{Author: *author, Color: *color, Head: *head, Tail: *tail, Version: "1.0.0"}, opts...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", *listen, "depth", cfg.Depth, "model", *modelPath)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}
}
