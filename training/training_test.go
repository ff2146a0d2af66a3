package training

import (
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/brensch/snekplan/api"
	"github.com/brensch/snekplan/inference"
	"github.com/brensch/snekplan/store"
)

func boardJSON(t *testing.T, w, h int) []byte {
	t.Helper()
	b := api.Board{
		Width:  w,
		Height: h,
		Food:   []api.Coord{{X: 5, Y: 5}},
		Snakes: []api.Battlesnake{
			{ID: "a", Health: 90, Body: []api.Coord{{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 1, Y: 3}}},
			{ID: "b", Health: 90, Body: []api.Coord{{X: 8, Y: 8}, {X: 8, Y: 7}, {X: 8, Y: 6}}},
		},
	}
	data, err := api.MarshalBoard(&b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func decision(t *testing.T, result string, actual int32) store.DecisionRow {
	return store.DecisionRow{
		GameID:  "g1",
		Turn:    4,
		SnakeID: "a",
		Width:   11,
		Height:  11,
		Board:   boardJSON(t, 11, 11),
		Move:    1,
		Source:  "selfplay",
		Result:  result,
		Actual:  actual,
	}
}

func TestConvert(t *testing.T) {
	row, ok, err := Convert(decision(t, store.ResultLost, 2))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if row.Value != -1 || row.Policy != 2 || row.PolicyP2 != 1 || row.PolicyP1 != 0 {
		t.Fatalf("row=%+v", row)
	}
	if row.XC != inference.Channels || row.XH != inference.Height || row.XW != inference.Width {
		t.Fatalf("dims=%d %d %d", row.XC, row.XH, row.XW)
	}

	x := DecodeX(row.X)
	if len(x) != inference.InputSize {
		t.Fatalf("len(x)=%d", len(x))
	}
	// Food plane is channel 0.
	if x[5*inference.Width+5] != 1 {
		t.Fatalf("food cell=%v", x[5*inference.Width+5])
	}
}

func TestConvert_FallsBackToPlannedMove(t *testing.T) {
	row, ok, err := Convert(decision(t, store.ResultWon, -1))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if row.Policy != 1 || row.PolicyP1 != 1 || row.Value != 1 {
		t.Fatalf("row=%+v", row)
	}
}

func TestConvert_Skips(t *testing.T) {
	if _, ok, err := Convert(decision(t, "", 0)); ok || err != nil {
		t.Fatalf("no result: ok=%v err=%v", ok, err)
	}
	d := decision(t, store.ResultDraw, 0)
	d.Width, d.Height = 7, 7
	d.Board = boardJSON(t, 7, 7)
	if _, ok, err := Convert(d); ok || err != nil {
		t.Fatalf("small board: ok=%v err=%v", ok, err)
	}
	d = decision(t, store.ResultDraw, 0)
	d.SnakeID = "ghost"
	if _, _, err := Convert(d); err == nil {
		t.Fatal("expected error for unknown snake")
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in, err := store.WriteDecisionsAtomic(dir, []store.DecisionRow{
		decision(t, store.ResultWon, 0),
		decision(t, "", 0),
		decision(t, store.ResultDraw, 3),
	})
	if err != nil {
		t.Fatalf("write decisions: %v", err)
	}
	out := filepath.Join(dir, "out.train.parquet")
	written, skipped, err := ConvertFile(in, out)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if written != 2 || skipped != 1 {
		t.Fatalf("written=%d skipped=%d", written, skipped)
	}

	rows, err := parquet.ReadFile[Row](out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 || rows[1].Policy != 3 || rows[1].Value != 0 {
		t.Fatalf("rows=%+v", rows)
	}
}
