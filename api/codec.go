package api

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// DecodeGameRequest reads one GameRequest from r.
func DecodeGameRequest(r io.Reader) (*GameRequest, error) {
	var req GameRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode game request: %w", err)
	}
	return &req, nil
}

// Encode writes v as a single JSON document.
func Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// MarshalBoard renders b compactly for archiving.
func MarshalBoard(b *Board) ([]byte, error) {
	return json.Marshal(b)
}

func UnmarshalBoard(data []byte) (*Board, error) {
	var b Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal board: %w", err)
	}
	return &b, nil
}
