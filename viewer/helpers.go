package viewer

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/brensch/snekplan/game"
)

func withCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseIntQuery returns def for a missing, malformed or negative value.
func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func moveName(m int32) string {
	if m < 0 || m >= game.NumMoves {
		return ""
	}
	return game.Move(m).String()
}

func asFloat64Slice(v any) []float64 {
	switch t := v.(type) {
	case []float64:
		return t
	case []any:
		out := make([]float64, 0, len(t))
		for _, x := range t {
			switch n := x.(type) {
			case float64:
				out = append(out, n)
			case float32:
				out = append(out, float64(n))
			}
		}
		return out
	}
	return nil
}

// paginate sorts games by key and returns the requested window.
func paginate(games []GameSummary, limit, offset int, key, dir string) []GameSummary {
	sorted := make([]GameSummary, len(games))
	copy(sorted, games)
	desc := strings.EqualFold(dir, "desc")
	less := func(a, b GameSummary) bool {
		switch key {
		case "turns":
			return a.MaxTurn < b.MaxTurn
		case "agreement":
			return a.Agreement < b.Agreement
		case "decisions":
			return a.Decisions < b.Decisions
		default:
			return a.GameID < b.GameID
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if desc {
			return less(sorted[j], sorted[i])
		}
		return less(sorted[i], sorted[j])
	})
	if offset >= len(sorted) {
		return []GameSummary{}
	}
	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return sorted[offset:end]
}
