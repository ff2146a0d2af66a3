package api

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/brensch/snekplan/game"
)

const moveRequest = `{
  "game": {"id": "g-1", "ruleset": {"name": "standard", "version": "v1.2.3"}, "map": "standard", "timeout": 500, "source": "league"},
  "turn": 14,
  "board": {
    "height": 11, "width": 11,
    "food": [{"x": 5, "y": 5}, {"x": 9, "y": 0}],
    "hazards": [{"x": 0, "y": 0}],
    "snakes": [
      {"id": "a", "name": "alpha", "health": 54, "body": [{"x": 0, "y": 0}, {"x": 1, "y": 0}, {"x": 2, "y": 0}], "latency": "111", "head": {"x": 0, "y": 0}, "length": 3, "shout": "", "squad": "", "customizations": {"color": "#FF0000", "head": "pixel", "tail": "pixel"}},
      {"id": "me", "name": "me", "health": 16, "body": [{"x": 5, "y": 4}, {"x": 5, "y": 3}, {"x": 6, "y": 3}, {"x": 6, "y": 2}], "latency": "123", "head": {"x": 5, "y": 4}, "length": 4, "shout": "", "squad": "", "customizations": {"color": "#00FF00", "head": "default", "tail": "default"}},
      {"id": "b", "name": "bravo", "health": 90, "body": [{"x": 8, "y": 8}, {"x": 8, "y": 7}, {"x": 8, "y": 7}], "latency": "0", "head": {"x": 8, "y": 8}, "length": 3, "shout": "", "squad": "", "customizations": {}}
    ]
  },
  "you": {"id": "me", "name": "me", "health": 16, "body": [{"x": 5, "y": 4}, {"x": 5, "y": 3}, {"x": 6, "y": 3}, {"x": 6, "y": 2}], "latency": "123", "head": {"x": 5, "y": 4}, "length": 4, "shout": "", "squad": "", "customizations": {}}
}`

func TestToSnapshot(t *testing.T) {
	req, err := DecodeGameRequest(strings.NewReader(moveRequest))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Game.Timeout != 500 || req.Turn != 14 || len(req.Board.Hazards) != 1 {
		t.Fatalf("decoded request wrong: %+v", req.Game)
	}

	s, err := ToSnapshot(&req.Board, req.You.ID)
	if err != nil {
		t.Fatalf("ToSnapshot: %v", err)
	}
	if s.Width != 11 || s.Height != 11 {
		t.Fatalf("dims=%dx%d", s.Width, s.Height)
	}
	if head, _ := s.You.Head(); head != (game.Cell{X: 5, Y: 4}) || s.You.Len() != 4 {
		t.Fatalf("you=%v", s.You.Cells())
	}
	if len(s.Opponents) != 2 {
		t.Fatalf("opponents=%d want 2", len(s.Opponents))
	}
	// Board order is kept.
	if head, _ := s.Opponents[0].Head(); head != (game.Cell{X: 0, Y: 0}) {
		t.Fatalf("first opponent head=%v", head)
	}
	if s.Opponents[1].Len() != 3 {
		t.Fatalf("stacked tail should be kept, len=%d", s.Opponents[1].Len())
	}
	if !s.Food.Contains(game.Cell{X: 5, Y: 5}) || !s.Food.Contains(game.Cell{X: 9, Y: 0}) || s.Food.Len() != 2 {
		t.Fatalf("food=%v", s.Food.Cells())
	}
}

func TestToSnapshot_PlayerNotFound(t *testing.T) {
	req, err := DecodeGameRequest(strings.NewReader(moveRequest))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, err = ToSnapshot(&req.Board, "ghost")
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("err=%v want ErrPlayerNotFound", err)
	}
}

func TestToAgent_HeadOnly(t *testing.T) {
	a := ToAgent(&Battlesnake{Head: Coord{X: 3, Y: 7}})
	if head, ok := a.Head(); !ok || head != (game.Cell{X: 3, Y: 7}) || a.Len() != 1 {
		t.Fatalf("agent=%v", a.Cells())
	}
}

func TestDecodeGameRequest_Malformed(t *testing.T) {
	if _, err := DecodeGameRequest(strings.NewReader(`{"game":`)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewMoveResponse(t *testing.T) {
	for _, tc := range []struct {
		m    game.Move
		want string
	}{
		{game.MoveUp, `{"move":"up"}`},
		{game.MoveDown, `{"move":"down"}`},
		{game.MoveLeft, `{"move":"left"}`},
		{game.MoveRight, `{"move":"right"}`},
	} {
		var buf bytes.Buffer
		if err := Encode(&buf, NewMoveResponse(tc.m)); err != nil {
			t.Fatalf("encode: %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != tc.want {
			t.Errorf("%v: got %s want %s", tc.m, got, tc.want)
		}
	}
}

func TestBoardRoundTrip(t *testing.T) {
	req, err := DecodeGameRequest(strings.NewReader(moveRequest))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, err := MarshalBoard(&req.Board)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := UnmarshalBoard(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(b.Snakes) != 3 || b.Snakes[1].ID != "me" || len(b.Hazards) != 1 {
		t.Fatalf("board=%+v", b)
	}
}
