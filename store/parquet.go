// Package store persists planner decisions and game outcomes.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const decisionSchema = "decision_row_v1"

// DecisionRow is one planner decision for a (game, turn, snake).
//
// Board is the wire board the decision was made on, as JSON, so the row can
// be replayed without this package knowing the wire format. Move uses
// 0=Up, 1=Down, 2=Left, 3=Right. Scores holds the averaged score of each move
// in that order and is empty when the search stopped at its horizon.
type DecisionRow struct {
	GameID    string    `parquet:"game_id,dict"`
	Turn      int32     `parquet:"turn"`
	SnakeID   string    `parquet:"snake_id,dict"`
	Width     int32     `parquet:"width"`
	Height    int32     `parquet:"height"`
	Board     []byte    `parquet:"board,zstd"`
	Move      int32     `parquet:"move"`
	Score     float64   `parquet:"score"`
	Scores    []float64 `parquet:"scores"`
	Depth     int32     `parquet:"depth"`
	Opponents int32     `parquet:"opponents"`
	Nodes     int64     `parquet:"nodes"`
	ElapsedUS int64     `parquet:"elapsed_us"`
	Source    string    `parquet:"source,dict"`
	// Result is won, lost or draw once the game has ended.
	Result string `parquet:"result,dict,optional"`
	// Actual is the move the snake really made, -1 when unknown.
	Actual int32 `parquet:"actual"`
}

// WriteDecisionsAtomic writes rows into outDir/tmp and then renames the file
// into outDir, so readers never see a partial file.
func WriteDecisionsAtomic(outDir string, rows []DecisionRow) (string, error) {
	if len(rows) == 0 {
		return "", errors.New("no rows to write")
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("decisions_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("board"),
		parquet.KeyValueMetadata("schema", decisionSchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadDecisions loads every row of a decision file.
func ReadDecisions(path string) ([]DecisionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	if schema, ok := pf.Lookup("schema"); ok && schema != decisionSchema {
		return nil, fmt.Errorf("%s: unexpected schema %q", path, schema)
	}

	reader := parquet.NewGenericReader[DecisionRow](pf)
	defer reader.Close()

	out := make([]DecisionRow, 0, int(reader.NumRows()))
	buf := make([]DecisionRow, 256)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return out, nil
}
