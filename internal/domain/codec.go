package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// The compact text form of a board is three fields separated by '/':
//
//	81 cell marks in Coord order ('.', 'X' or 'O')
//	9 legal-macro flags in macro order ('0' or '1')
//	the last move in decimal, or '-' when there is none
//
// For example the board after the first move at the center is
// "........................................X......................................./000010000/40".

const fieldSep = "/"

// Encode returns the compact text form of b.
func Encode(b Board) string {
	var sb strings.Builder
	sb.Grow(NumCells + 1 + NumMacros + 3)
	for c := Coord(0); c < NumCells; c++ {
		sb.WriteByte(b.Tile(c).Mark())
	}
	sb.WriteString(fieldSep)
	for om := 0; om < NumMacros; om++ {
		if b.MacroLegal(om) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	sb.WriteString(fieldSep)
	sb.WriteString(b.last.String())
	return sb.String()
}

// Decode parses the compact text form. Macro ownership, the winner and the
// player to move are derived from the cells; anything that no legal game can
// reach is rejected with ErrInvalidSerializedBoard.
func Decode(s string) (Board, error) {
	fields := strings.Split(s, fieldSep)
	if len(fields) != 3 {
		return Board{}, invalidf("want 3 fields, got %d", len(fields))
	}
	cells, mask, last := fields[0], fields[1], fields[2]

	if len(cells) != NumCells {
		return Board{}, invalidf("want %d cells, got %d", NumCells, len(cells))
	}
	b := Board{last: NoCoord}
	var counts [2]int
	for i := 0; i < NumCells; i++ {
		p, ok := playerFromMark(cells[i])
		if !ok {
			return Board{}, invalidf("bad cell %q at %d", cells[i], i)
		}
		if p == Neutral {
			continue
		}
		c := Coord(i)
		b.tiles[p.index()][c.Macro()] |= 1 << c.Sub()
		counts[p.index()]++
	}
	switch counts[0] - counts[1] {
	case 0:
		b.next = First
	case 1:
		b.next = Second
	default:
		return Board{}, invalidf("parity: %d X against %d O", counts[0], counts[1])
	}

	for om := 0; om < NumMacros; om++ {
		x, o := HasLine(b.tiles[0][om]), HasLine(b.tiles[1][om])
		if x && o {
			return Board{}, invalidf("macro %d has lines for both players", om)
		}
		if x {
			b.macros[0] |= 1 << om
		}
		if o {
			b.macros[1] |= 1 << om
		}
	}
	x, o := HasLine(b.macros[0]), HasLine(b.macros[1])
	switch {
	case x && o:
		return Board{}, invalidf("both players won")
	case x:
		b.wonBy = First
	case o:
		b.wonBy = Second
	}

	if len(mask) != NumMacros {
		return Board{}, invalidf("want %d mask flags, got %d", NumMacros, len(mask))
	}
	for om := 0; om < NumMacros; om++ {
		switch mask[om] {
		case '1':
			b.legal |= 1 << om
		case '0':
		default:
			return Board{}, invalidf("bad mask flag %q at %d", mask[om], om)
		}
	}
	open := b.openMacros()
	if b.legal&^open != 0 {
		return Board{}, invalidf("mask %s allows a decided or full macro", mask)
	}
	if b.legal == 0 && open != 0 && b.wonBy == Neutral {
		return Board{}, invalidf("empty mask with open macros")
	}

	if last != "-" {
		n, err := strconv.Atoi(last)
		if err != nil || !Coord(n).Valid() {
			return Board{}, invalidf("bad last move %q", last)
		}
		b.last = Coord(n)
		if b.Tile(b.last) != b.next.Other() {
			return Board{}, invalidf("last move %d was not played by %v", n, b.next.Other())
		}
		want := open
		if open&(1<<b.last.Sub()) != 0 {
			want = 1 << b.last.Sub()
		}
		if b.legal != want {
			return Board{}, invalidf("mask %s does not follow last move %d", mask, n)
		}
	} else if counts[0] == 0 && b.legal != fullGrid {
		return Board{}, invalidf("empty board must allow every macro")
	}
	return b, nil
}

func (b Board) String() string { return Encode(b) }

// MarshalText implements encoding.TextMarshaler.
func (b Board) MarshalText() ([]byte, error) { return []byte(Encode(b)), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Board) UnmarshalText(text []byte) error {
	d, err := Decode(string(text))
	if err != nil {
		return err
	}
	*b = d
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSerializedBoard, fmt.Sprintf(format, args...))
}
