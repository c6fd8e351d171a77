package domain

import (
	"errors"
	"fmt"
	"math/bits"
)

// Errors returned by domain operations.
var (
	ErrIllegalMove            = errors.New("illegal move")
	ErrInvalidSerializedBoard = errors.New("invalid serialized board")
)

// Board is one position of ultimate tic-tac-toe. It is a plain value: copying
// a Board yields an independent snapshot.
type Board struct {
	tiles  [2][NumMacros]uint16 // per player, per macro occupancy
	macros [2]uint16            // per player macro ownership
	legal  uint16               // macros the next player may move into
	next   Player
	last   Coord
	wonBy  Player
}

// New returns the empty board with First to move and every macro open.
func New() Board {
	return Board{legal: fullGrid, next: First, last: NoCoord}
}

// Play applies c for the player to move and reports whether it won the macro
// it was played in. The board is left untouched on error.
func (b *Board) Play(c Coord) (bool, error) {
	if !b.Legal(c) {
		if b.IsDone() {
			return false, fmt.Errorf("%w: %v: game is over", ErrIllegalMove, c)
		}
		return false, fmt.Errorf("%w: %v", ErrIllegalMove, c)
	}
	p := b.next.index()
	om, os := c.Macro(), c.Sub()
	b.tiles[p][om] |= 1 << os

	won := false
	if wins(b.tiles[p][om], os) {
		won = true
		b.macros[p] |= 1 << om
		if wins(b.macros[p], om) {
			b.wonBy = b.next
		}
	}

	open := b.openMacros()
	if open&(1<<os) != 0 {
		b.legal = 1 << os
	} else {
		b.legal = open
	}
	b.last = c
	b.next = b.next.Other()
	return won, nil
}

// Apply returns the board after c, leaving b unchanged.
func (b Board) Apply(c Coord) (Board, error) {
	if _, err := b.Play(c); err != nil {
		return b, err
	}
	return b, nil
}

// Legal reports whether c is one of the available moves.
func (b Board) Legal(c Coord) bool {
	if !c.Valid() || b.wonBy != Neutral {
		return false
	}
	om := c.Macro()
	if b.legal&(1<<om) == 0 {
		return false
	}
	return b.occupied(om)&(1<<c.Sub()) == 0
}

// AvailableMoves lists the legal moves in ascending order. It is empty once
// the game is done.
func (b Board) AvailableMoves() []Coord {
	return b.AppendMoves(nil)
}

// AppendMoves appends the legal moves to dst.
func (b Board) AppendMoves(dst []Coord) []Coord {
	if b.wonBy != Neutral {
		return dst
	}
	for om := 0; om < NumMacros; om++ {
		if b.legal&(1<<om) == 0 {
			continue
		}
		free := ^b.occupied(om) & fullGrid
		for free != 0 {
			os := bits.TrailingZeros16(free)
			free &= free - 1
			dst = append(dst, Coord(om*9+os))
		}
	}
	return dst
}

// IsDone reports whether the game is won or no move is left.
func (b Board) IsDone() bool {
	// Every legal macro is open, so it has at least one empty cell.
	return b.wonBy != Neutral || b.legal == 0
}

// Tile returns the owner of cell c.
func (b Board) Tile(c Coord) Player {
	om, bit := c.Macro(), uint16(1)<<c.Sub()
	switch {
	case b.tiles[0][om]&bit != 0:
		return First
	case b.tiles[1][om]&bit != 0:
		return Second
	default:
		return Neutral
	}
}

// Macro returns the owner of macro om.
func (b Board) Macro(om int) Player {
	bit := uint16(1) << om
	switch {
	case b.macros[0]&bit != 0:
		return First
	case b.macros[1]&bit != 0:
		return Second
	default:
		return Neutral
	}
}

// TileMask returns the 9-bit occupancy of p inside macro om.
func (b Board) TileMask(p Player, om int) uint16 { return b.tiles[p.index()][om] }

// MacroMask returns the 9-bit set of macros owned by p.
func (b Board) MacroMask(p Player) uint16 { return b.macros[p.index()] }

// MacroLegalMask is the 9-bit set of macros the next player may move into.
func (b Board) MacroLegalMask() uint16 { return b.legal }

// MacroLegal reports whether macro om is in the legal mask.
func (b Board) MacroLegal(om int) bool { return b.legal&(1<<om) != 0 }

// MacroFull reports whether every cell of macro om is taken.
func (b Board) MacroFull(om int) bool { return b.occupied(om) == fullGrid }

func (b Board) NextPlayer() Player { return b.next }

func (b Board) WonBy() Player { return b.wonBy }

// LastMove returns the most recent move, if any.
func (b Board) LastMove() (Coord, bool) { return b.last, b.last != NoCoord }

// Ply is the number of occupied cells.
func (b Board) Ply() int {
	n := 0
	for om := 0; om < NumMacros; om++ {
		n += bits.OnesCount16(b.occupied(om))
	}
	return n
}

// Copy returns an independent snapshot of b.
func (b Board) Copy() Board { return b }

// Equal compares occupancy and legal mask. Derived fields follow from those.
func (b Board) Equal(o Board) bool {
	return b.tiles == o.tiles && b.legal == o.legal
}

func (b Board) occupied(om int) uint16 { return b.tiles[0][om] | b.tiles[1][om] }

func (b Board) openMacros() uint16 {
	decided := b.macros[0] | b.macros[1]
	var open uint16
	for om := 0; om < NumMacros; om++ {
		if decided&(1<<om) == 0 && b.occupied(om) != fullGrid {
			open |= 1 << om
		}
	}
	return open
}
