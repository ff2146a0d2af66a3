package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/brensch/snekplan/api"
	"github.com/brensch/snekplan/planner"
	"github.com/brensch/snekplan/store"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	cfg := planner.DefaultConfig()
	cfg.Depth = 1
	p, err := planner.New(cfg, nil)
	if err != nil {
		t.Fatalf("planner: %v", err)
	}
	return New(p, Info{Author: "tester", Color: "#123456", Head: "default", Tail: "default", Version: "test"}, opts...)
}

func gameRequest(t *testing.T, youID string, snakes ...api.Battlesnake) string {
	t.Helper()
	req := api.GameRequest{
		Game: api.Game{ID: "game-1", Ruleset: api.Ruleset{Name: "standard"}, Map: "standard", Timeout: 500},
		Turn: 3,
		Board: api.Board{
			Width:  7,
			Height: 7,
			Food:   []api.Coord{{X: 3, Y: 3}},
			Snakes: snakes,
		},
		You: api.Battlesnake{ID: youID},
	}
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func snake(id string, cells ...api.Coord) api.Battlesnake {
	return api.Battlesnake{ID: id, Name: id, Health: 100, Body: cells, Head: cells[0], Length: len(cells)}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var info api.InfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.APIVersion != "1" || info.Author != "tester" || info.Color != "#123456" {
		t.Fatalf("info=%+v", info)
	}
	if rec := do(t, h, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rec.Code)
	}
}

func TestMove_AvoidsWall(t *testing.T) {
	h := newTestServer(t).Handler()
	// Head in the top-right corner, body below it: only Left is safe.
	body := gameRequest(t, "me", snake("me", api.Coord{X: 6, Y: 6}, api.Coord{X: 6, Y: 5}, api.Coord{X: 6, Y: 4}))
	rec := do(t, h, http.MethodPost, "/move", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp api.MoveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Move != "left" || resp.Shout != "" {
		t.Fatalf("resp=%+v want left", resp)
	}
	if strings.Contains(rec.Body.String(), "shout") {
		t.Fatalf("shout should be omitted: %s", rec.Body.String())
	}
}

func TestMove_PlayerNotFound(t *testing.T) {
	h := newTestServer(t).Handler()
	body := gameRequest(t, "ghost", snake("me", api.Coord{X: 1, Y: 1}))
	rec := do(t, h, http.MethodPost, "/move", body)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), api.ErrPlayerNotFound.Error()) {
		t.Fatalf("body=%q", rec.Body.String())
	}
}

func TestMove_BadJSON(t *testing.T) {
	h := newTestServer(t).Handler()
	for _, path := range []string{"/start", "/move", "/end"} {
		if rec := do(t, h, http.MethodPost, path, "{"); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d want 400", path, rec.Code)
		}
	}
}

func TestLifecycle_RecordsGame(t *testing.T) {
	dir := t.TempDir()
	reg, err := store.OpenRegistry(filepath.Join(dir, "games.db"))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	defer reg.Close()
	archive := store.NewArchive(filepath.Join(dir, "archive"), 1, nil)

	h := newTestServer(t, WithRegistry(reg), WithArchive(archive)).Handler()
	me := snake("me", api.Coord{X: 1, Y: 1}, api.Coord{X: 1, Y: 0})
	other := snake("other", api.Coord{X: 5, Y: 5}, api.Coord{X: 5, Y: 4})

	if rec := do(t, h, http.MethodPost, "/start", gameRequest(t, "me", me, other)); rec.Code != http.StatusOK {
		t.Fatalf("start status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/move", gameRequest(t, "me", me, other)); rec.Code != http.StatusOK {
		t.Fatalf("move status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/end", gameRequest(t, "me", me)); rec.Code != http.StatusOK {
		t.Fatalf("end status=%d", rec.Code)
	}

	g, err := reg.Game(context.Background(), "game-1")
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	if g.Result != store.ResultWon || g.Turns != 3 || g.TimeoutMS != 500 || g.YouID != "me" {
		t.Fatalf("record=%+v", g)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "archive", "*.parquet"))
	if len(files) != 1 {
		t.Fatalf("archive files=%v", files)
	}
	rows, err := store.ReadDecisions(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || rows[0].Result != store.ResultWon || rows[0].Opponents != 1 || rows[0].Depth != 1 || len(rows[0].Scores) != 4 {
		t.Fatalf("rows=%+v", rows)
	}
	board, err := api.UnmarshalBoard(rows[0].Board)
	if err != nil || len(board.Snakes) != 2 {
		t.Fatalf("archived board=%+v err=%v", board, err)
	}
}

func TestOutcome(t *testing.T) {
	me := snake("me", api.Coord{})
	other := snake("other", api.Coord{X: 1})
	for _, tc := range []struct {
		name   string
		snakes []api.Battlesnake
		want   string
	}{
		{"alive", []api.Battlesnake{me}, store.ResultWon},
		{"empty", nil, store.ResultDraw},
		{"other", []api.Battlesnake{other}, store.ResultLost},
	} {
		if got := Outcome(&api.Board{Snakes: tc.snakes}, "me"); got != tc.want {
			t.Errorf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}
