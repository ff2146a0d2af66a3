// Package training turns archived decisions into value/policy training rows
// for the network that backs inference.ValueNet.
package training

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/snekplan/api"
	"github.com/brensch/snekplan/game"
	"github.com/brensch/snekplan/inference"
	"github.com/brensch/snekplan/store"
)

const trainingSchema = "training_row_v1"

// Row is one encoded position. X holds inference.InputSize little-endian
// float32 values in [C, H, W] order.
type Row struct {
	GameID  string `parquet:"game_id,dict"`
	Turn    int32  `parquet:"turn"`
	SnakeID string `parquet:"snake_id,dict"`

	X []byte `parquet:"x"`

	// Policy is the move the snake actually made, or the planned move when
	// the actual one is unknown. PolicyP0..P3 is its one-hot distribution.
	Policy   int32   `parquet:"policy"`
	PolicyP0 float32 `parquet:"policy_p0"`
	PolicyP1 float32 `parquet:"policy_p1"`
	PolicyP2 float32 `parquet:"policy_p2"`
	PolicyP3 float32 `parquet:"policy_p3"`
	// Value is 1 for a win, -1 for a loss and 0 for a draw.
	Value float32 `parquet:"value"`

	XC int32 `parquet:"x_c"`
	XH int32 `parquet:"x_h"`
	XW int32 `parquet:"x_w"`

	Source string `parquet:"source,dict"`
}

// Convert encodes one decision. ok is false for rows that cannot be used:
// games without a result and boards that do not match the encoder size.
func Convert(d store.DecisionRow) (row Row, ok bool, err error) {
	value, known := resultValue(d.Result)
	if !known {
		return Row{}, false, nil
	}
	if d.Width != inference.Width || d.Height != inference.Height {
		return Row{}, false, nil
	}
	policy := d.Actual
	if policy < 0 {
		policy = d.Move
	}
	if policy < 0 || policy >= game.NumMoves {
		return Row{}, false, fmt.Errorf("game %s turn %d snake %s: invalid move %d", d.GameID, d.Turn, d.SnakeID, policy)
	}

	board, err := api.UnmarshalBoard(d.Board)
	if err != nil {
		return Row{}, false, fmt.Errorf("game %s turn %d: %w", d.GameID, d.Turn, err)
	}
	snapshot, err := api.ToSnapshot(board, d.SnakeID)
	if err != nil {
		return Row{}, false, fmt.Errorf("game %s turn %d: %w", d.GameID, d.Turn, err)
	}

	planes := inference.Encode(snapshot, make([]float32, inference.InputSize))
	x := make([]byte, 0, 4*len(planes))
	for _, f := range planes {
		x = binary.LittleEndian.AppendUint32(x, math.Float32bits(f))
	}

	var probs [game.NumMoves]float32
	probs[policy] = 1

	return Row{
		GameID:   d.GameID,
		Turn:     d.Turn,
		SnakeID:  d.SnakeID,
		X:        x,
		Policy:   policy,
		PolicyP0: probs[0],
		PolicyP1: probs[1],
		PolicyP2: probs[2],
		PolicyP3: probs[3],
		Value:    value,
		XC:       inference.Channels,
		XH:       inference.Height,
		XW:       inference.Width,
		Source:   d.Source,
	}, true, nil
}

func resultValue(result string) (float32, bool) {
	switch result {
	case store.ResultWon:
		return 1, true
	case store.ResultLost:
		return -1, true
	case store.ResultDraw:
		return 0, true
	}
	return 0, false
}

// ConvertFile converts every usable decision in inPath and writes them to
// outPath through a temporary file. Nothing is written when no row is usable.
// Rows that fail to convert are counted in skipped and otherwise ignored.
func ConvertFile(inPath, outPath string) (written, skipped int, err error) {
	decisions, err := store.ReadDecisions(inPath)
	if err != nil {
		return 0, 0, err
	}

	rows := make([]Row, 0, len(decisions))
	for _, d := range decisions {
		row, ok, err := Convert(d)
		if err != nil {
			skipped++
			continue
		}
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, skipped, nil
	}

	tmp := outPath + ".tmp"
	_ = os.Remove(tmp)
	if err := parquet.WriteFile(tmp, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", trainingSchema),
	); err != nil {
		_ = os.Remove(tmp)
		return 0, skipped, fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		_ = os.Remove(tmp)
		return 0, skipped, err
	}
	return len(rows), skipped, nil
}

// DecodeX is the inverse of the X encoding.
func DecodeX(x []byte) []float32 {
	out := make([]float32, len(x)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(x[4*i:]))
	}
	return out
}
