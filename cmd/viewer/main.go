// Command viewer serves the archived decisions, the game registry and an
// ad-hoc planning endpoint over HTTP.
package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brensch/snekplan/config"
	"github.com/brensch/snekplan/logging"
	"github.com/brensch/snekplan/planner"
	"github.com/brensch/snekplan/store"
	"github.com/brensch/snekplan/viewer"
)

func main() {
	listen := flag.String("listen", config.EnvOrDefault("VIEWER_LISTEN", "127.0.0.1:8081"), "HTTP listen address")
	dataDirs := flag.String("data-dirs", config.EnvOrDefault("DATA_DIRS", "data/archive,data/selfplay,data/replay"), "Comma separated directories holding decision parquet files")
	registryPath := flag.String("registry", config.EnvOrDefault("REGISTRY_DB", ""), "SQLite game registry (empty = disabled)")
	staticDir := flag.String("static-dir", "", "Optional directory to serve as a single page app")
	refresh := flag.Duration("refresh", config.EnvDuration("VIEWER_REFRESH", 30*time.Second), "How long the parquet view is cached")
	depth := flag.Int("depth", config.EnvInt("SEARCH_DEPTH", planner.DefaultDepth), "Default depth for /api/plan")
	logFormat := flag.String("log-format", config.EnvOrDefault("LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOrDefault("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logger, err := logging.New(os.Stdout, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(logger)

	roots := parseDataRoots(*dataDirs)
	cache := viewer.NewDBCache(roots, *refresh, logger)
	defer cache.Close()

	var registry *store.Registry
	if *registryPath != "" {
		if registry, err = store.OpenRegistry(*registryPath); err != nil {
			log.Fatalf("open registry: %v", err)
		}
		defer registry.Close()
	}

	cfg := planner.DefaultConfig()
	cfg.Depth = *depth
	if err := cfg.Validate(); err != nil {
		log.Fatalf("planner config: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", viewer.NewServer(cache, registry, cfg, logger).Handler())
	if *staticDir != "" {
		mux.Handle("/", spaHandler{staticPath: *staticDir, indexPath: filepath.Join(*staticDir, "index.html")})
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("viewer listening", "addr", *listen, "roots", roots, "static", *staticDir)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("viewer stopped", "err", err)
		os.Exit(1)
	}
}

func parseDataRoots(csv string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// spaHandler serves static assets and falls back to index.html for client
// side routes.
type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Clean(r.URL.Path)
	if path == "/" {
		http.ServeFile(w, r, h.indexPath)
		return
	}
	candidate := filepath.Join(h.staticPath, strings.TrimPrefix(path, "/"))
	if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
		http.ServeFile(w, r, candidate)
		return
	}
	http.ServeFile(w, r, h.indexPath)
}
