// Command debuggame plays one seeded self-play game, prints every board and
// the per-move scores behind each decision, and writes the decisions to
// parquet for later inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/brensch/snekplan/game"
	"github.com/brensch/snekplan/selfplay"
	"github.com/brensch/snekplan/store"
)

func main() {
	outDir := flag.String("out-dir", "debug_games", "Output directory for the decision parquet")
	seed := flag.Int64("seed", 1, "Referee seed")
	depth := flag.Int("depth", 2, "Search depth in plies")
	snakes := flag.Int("snakes", 2, "Snakes in the game")
	maxTurns := flag.Int("max-turns", 300, "Turn limit")
	quiet := flag.Bool("quiet", false, "Skip board rendering")
	flag.Parse()

	cfg := selfplay.DefaultConfig()
	cfg.Seed = *seed
	cfg.Snakes = *snakes
	cfg.MaxTurns = *maxTurns
	cfg.Planner.Depth = *depth
	cfg.Verbose = !*quiet
	cfg.Logf = func(format string, args ...any) { fmt.Printf(format+"\n", args...) }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Printf("Playing debug game: seed=%d depth=%d snakes=%d", *seed, *depth, *snakes)
	res, err := selfplay.PlayGame(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("Failed to play debug game: %v", err)
	}

	turn := int32(-1)
	for _, r := range res.Rows {
		if r.Turn != turn {
			turn = r.Turn
			fmt.Printf("Turn %3d\n", turn)
		}
		fmt.Printf("  %-8s %-5s score=%8.4f [%s] nodes=%d\n",
			r.SnakeID, game.Move(r.Move), r.Score, formatScores(r.Scores), r.Nodes)
	}

	winner := res.Winner
	if winner == "" {
		winner = "draw"
	}
	log.Printf("Game complete: %d turns, winner: %s", res.Turns, winner)
	for _, e := range res.Eliminations {
		log.Printf("  %s eliminated on turn %d: %s", e.ID, e.Turn, e.Cause)
	}

	path, err := store.WriteDecisionsAtomic(*outDir, res.Rows)
	if err != nil {
		log.Fatalf("Failed to write debug game: %v", err)
	}
	log.Printf("Debug game %s written to: %s", res.GameID, path)
}

func formatScores(scores []float64) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%s=%.3f", game.Move(i), s)
	}
	return strings.Join(parts, " ")
}
