package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var feed = []string{
	`{"type":"game_info","data":{"game":{"id":"g-1","width":7,"height":7,"timeout":500},"ruleset":{"name":"standard","version":"v1"}}}`,
	`{"type":"frame","data":{"turn":0,"food":[{"x":3,"y":3}],"snakes":[{"id":"a","name":"A","health":100,"body":[{"x":1,"y":1},{"x":1,"y":1},{"x":1,"y":1}]},{"id":"b","name":"B","health":100,"body":[{"x":5,"y":5},{"x":5,"y":5},{"x":5,"y":5}]}]}}`,
	`not json`,
	`{"type":"frame","data":{"turn":1,"food":[{"x":3,"y":3}],"snakes":[{"id":"a","name":"A","health":99,"body":[{"x":1,"y":2},{"x":1,"y":1},{"x":1,"y":1}]},{"id":"b","name":"B","health":0,"body":[{"x":5,"y":7},{"x":5,"y":5},{"x":5,"y":5}],"death":{"cause":"wall-collision","turn":1}}]}}`,
	`{"type":"game_end","data":{}}`,
}

func engine(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/events") {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, msg := range feed {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Keep the socket open; the client must stop on game_end.
		time.Sleep(100 * time.Millisecond)
	}))
}

func testConfig(srv *httptest.Server) Config {
	cfg := DefaultConfig()
	cfg.EngineURL = "ws" + strings.TrimPrefix(srv.URL, "http") + "/games/%s/events"
	cfg.ReadTimeout = 2 * time.Second
	cfg.Workers = 2
	return cfg
}

func TestDownload(t *testing.T) {
	srv := engine(t)
	defer srv.Close()

	g, err := New(testConfig(srv), nil).Download(context.Background(), "g-1")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if g.Info.Game.Width != 7 || g.Info.Ruleset.Name != "standard" || len(g.Frames) != 2 {
		t.Fatalf("game=%+v", g)
	}
	if g.Winner() != "a" {
		t.Fatalf("winner=%q", g.Winner())
	}

	b := g.Board(&g.Frames[1])
	if b.Width != 7 || len(b.Snakes) != 1 || b.Snakes[0].ID != "a" || b.Snakes[0].Head.Y != 2 {
		t.Fatalf("board=%+v", b)
	}
}

func TestRun(t *testing.T) {
	srv := engine(t)
	defer srv.Close()

	d := New(testConfig(srv), nil)
	ids := make(chan string, 3)
	ids <- "g-1"
	ids <- "g-2"
	ids <- "g-3"
	close(ids)

	var mu sync.Mutex
	got := 0
	d.Run(context.Background(), ids, func(g *Game) error {
		mu.Lock()
		got++
		mu.Unlock()
		return nil
	})
	if got != 3 || d.Stats().Downloaded != 3 || d.Stats().Frames != 6 {
		t.Fatalf("handled=%d stats=%+v", got, d.Stats())
	}
}

func TestDownload_ConnectError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EngineURL = "ws://127.0.0.1:1/games/%s/events"
	cfg.ConnectTimeout = time.Second
	if _, err := New(cfg, nil).Download(context.Background(), "x"); err == nil {
		t.Fatalf("expected connect error")
	}
}
