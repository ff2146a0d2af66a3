package rules

import (
	"fmt"
	"iter"

	"github.com/brensch/snekplan/game"
)

// maxJointOpponents keeps 4^n inside an int on every platform Go supports.
const maxJointOpponents = 15

// JointMoveCount returns 4^n, the number of joint moves for n opponents.
// It is 1 when n is 0: the empty assignment.
func JointMoveCount(n int) int {
	checkOpponents(n)
	return 1 << (2 * n)
}

// DecodeJointMove writes the joint move with the given index into dst and
// returns it. Opponent i takes base-4 digit i of index, least significant
// first, so index 0 is all Up. dst is reused when it has capacity.
func DecodeJointMove(index, n int, dst []game.Move) []game.Move {
	total := JointMoveCount(n)
	if index < 0 || index >= total {
		panic(fmt.Sprintf("rules: joint move index %d out of range [0,%d)", index, total))
	}
	if cap(dst) < n {
		dst = make([]game.Move, n)
	}
	dst = dst[:n]
	for i := 0; i < n; i++ {
		dst[i] = game.Moves[index&3]
		index >>= 2
	}
	return dst
}

// JointMoves yields every joint move for n opponents together with its
// index. The yielded slice is reused between iterations; copy it to keep it.
func JointMoves(n int) iter.Seq2[int, []game.Move] {
	total := JointMoveCount(n)
	return func(yield func(int, []game.Move) bool) {
		buf := make([]game.Move, n)
		for i := 0; i < total; i++ {
			buf = DecodeJointMove(i, n, buf)
			if !yield(i, buf) {
				return
			}
		}
	}
}

func checkOpponents(n int) {
	if n < 0 || n > maxJointOpponents {
		panic(fmt.Sprintf("rules: cannot enumerate joint moves for %d opponents", n))
	}
}
