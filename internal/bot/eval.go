package bot

import (
	"math/bits"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

const (
	tileWeight = 1
	// The largest possible tile sum is 9 * 15 * tileWeight, well below one macro.
	macroWeight = 1000

	// WinScore is the value of a won game. It dominates every heuristic sum.
	WinScore = 1_000_000

	inf = 10 * WinScore
)

// positional factor of a cell inside its 3x3 grid: center, corners, edges
var factor = [9]int{
	2, 1, 2,
	1, 3, 1,
	2, 1, 2,
}

// weighted[mask] is the sum of factor over the cells set in mask.
var weighted [512]int

func init() {
	for m := range weighted {
		for rest := uint(m); rest != 0; rest &= rest - 1 {
			weighted[m] += factor[bits.TrailingZeros(rest)]
		}
	}
}

// Evaluate scores b from First's point of view. A decided game scores
// ±WinScore and a full-board tie scores zero.
func Evaluate(b domain.Board) int {
	switch b.WonBy() {
	case domain.First:
		return WinScore
	case domain.Second:
		return -WinScore
	}
	if b.IsDone() {
		return 0
	}
	score := macroWeight * (weighted[b.MacroMask(domain.First)] - weighted[b.MacroMask(domain.Second)])
	for om := 0; om < domain.NumMacros; om++ {
		score += tileWeight * (weighted[b.TileMask(domain.First, om)] - weighted[b.TileMask(domain.Second, om)])
	}
	return score
}
