package domain

import (
	"fmt"
	"strconv"
)

// Coord addresses one of the 81 cells. Cells are numbered macro by macro:
// Coord/9 is the macro (row-major, 0..8) and Coord%9 the cell inside it.
type Coord int

const (
	NumCells  = 81
	NumMacros = 9

	// NoCoord marks the absence of a move.
	NoCoord Coord = -1
)

// ToCoord converts a column x and row y of the 9x9 grid to a Coord.
func ToCoord(x, y int) Coord {
	return Coord(((x/3)+(y/3)*3)*9 + ((x % 3) + (y%3)*3))
}

// ParseCoord parses the decimal form produced by Coord.String.
func ParseCoord(s string) (Coord, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return NoCoord, fmt.Errorf("coord %q: %w", s, err)
	}
	c := Coord(n)
	if !c.Valid() {
		return NoCoord, fmt.Errorf("coord %d is out of range [0, %d)", n, NumCells)
	}
	return c, nil
}

// Valid reports whether c is inside the board.
func (c Coord) Valid() bool { return c >= 0 && c < NumCells }

// Macro is the index of the sub-board holding c.
func (c Coord) Macro() int { return int(c) / 9 }

// Sub is the position of c inside its sub-board, which is also the macro the
// opponent is sent to.
func (c Coord) Sub() int { return int(c) % 9 }

// XY is the inverse of ToCoord.
func (c Coord) XY() (x, y int) {
	om, os := c.Macro(), c.Sub()
	return (om%3)*3 + os%3, (om/3)*3 + os/3
}

func (c Coord) String() string {
	if c == NoCoord {
		return "-"
	}
	return strconv.Itoa(int(c))
}
