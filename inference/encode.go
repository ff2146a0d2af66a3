package inference

import (
	"sync"

	"github.com/brensch/snekplan/game"
)

// Tensor geometry. Boards larger than Width x Height are clipped.
const (
	Width        = 11
	Height       = 11
	Channels     = 8
	MaxOpponents = 3
	InputSize    = Channels * Height * Width
)

// Channel layout:
// 0 food
// 1 ego body TTL (head 1.0 down to 1/len at the tail)
// 2..4 opponent body TTL, first three living opponents in slot order
// 5 ego length plane, len/(Width*Height)
// 6 living opponent count plane, n/MaxOpponents clipped at 1
// 7 board mask, 1 on every playable cell
const (
	chanFood = iota
	chanEgo
	chanOpp0
	chanOpp1
	chanOpp2
	chanEgoLen
	chanOppCount
	chanMask
)

var floatPool = sync.Pool{
	New: func() any {
		b := make([]float32, InputSize)
		return &b
	},
}

func getBuffer() *[]float32 {
	return floatPool.Get().(*[]float32)
}

func putBuffer(b *[]float32) {
	floatPool.Put(b)
}

// Encode writes the ego-centric planes of s into dst, which must hold
// InputSize floats, and returns it. Layout is [C, H, W].
func Encode(s *game.Snapshot, dst []float32) []float32 {
	dst = dst[:InputSize]
	clear(dst)

	inBoard := func(c game.Cell) bool {
		return c.InBounds(min(s.Width, Width), min(s.Height, Height))
	}
	set := func(ch int, c game.Cell, v float32) {
		if !inBoard(c) {
			return
		}
		dst[ch*Height*Width+int(c.Y)*Width+int(c.X)] = v
	}
	fill := func(ch int, v float32) {
		plane := dst[ch*Height*Width : (ch+1)*Height*Width]
		for i := range plane {
			plane[i] = v
		}
	}
	ttl := func(ch int, a game.Agent) {
		cells := a.Cells()
		l := float32(len(cells))
		// Tail first so a stacked head keeps the head's value.
		for i := len(cells) - 1; i >= 0; i-- {
			set(ch, cells[i], float32(len(cells)-i)/l)
		}
	}

	for _, f := range s.Food.Cells() {
		set(chanFood, f, 1)
	}

	ttl(chanEgo, s.You)
	fill(chanEgoLen, float32(s.You.Len())/float32(Width*Height))

	alive := 0
	for _, o := range s.Opponents {
		if !o.Alive() {
			continue
		}
		if alive < MaxOpponents {
			ttl(chanOpp0+alive, o)
		}
		alive++
	}
	fill(chanOppCount, min(float32(alive)/MaxOpponents, 1))

	for y := 0; y < min(s.Height, Height); y++ {
		for x := 0; x < min(s.Width, Width); x++ {
			dst[chanMask*Height*Width+y*Width+x] = 1
		}
	}
	return dst
}
