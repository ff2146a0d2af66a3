package selfplay

import (
	"fmt"
	"strings"
)

// RenderBoard draws b with y increasing upwards. Each snake gets a letter;
// its head is upper case. F marks food.
func RenderBoard(b *Board) string {
	grid := make([][]byte, b.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", b.Width))
	}
	put := func(x, y int, ch byte) {
		if x >= 0 && x < b.Width && y >= 0 && y < b.Height {
			grid[y][x] = ch
		}
	}

	for _, f := range b.Food {
		put(int(f.X), int(f.Y), 'F')
	}
	for i, s := range b.Snakes {
		body := byte('a' + i%26)
		for j := len(s.Body) - 1; j >= 0; j-- {
			ch := body
			if j == 0 {
				ch = body - 'a' + 'A'
			}
			put(int(s.Body[j].X), int(s.Body[j].Y), ch)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d\n", b.Turn)
	for y := b.Height - 1; y >= 0; y-- {
		sb.Write(grid[y])
		sb.WriteByte('\n')
	}
	for i, s := range b.Snakes {
		fmt.Fprintf(&sb, "%c %s len=%d health=%d\n", 'A'+i%26, s.ID, len(s.Body), s.Health)
	}
	return sb.String()
}
