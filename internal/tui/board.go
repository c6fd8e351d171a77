// Package tui is a terminal front end for playing ultimate tic-tac-toe
// against the bot.
package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

// Size of the drawn board: nine cells two columns wide plus two separator
// columns, nine rows plus two separator rows.
const (
	boardWidth  = 9*2 + 2
	boardHeight = 9 + 2
)

var (
	styleCell    = tcell.StyleDefault
	styleLegal   = tcell.StyleDefault.Background(tcell.ColorDarkGreen)
	styleOwnerX  = tcell.StyleDefault.Background(tcell.ColorDarkRed)
	styleOwnerO  = tcell.StyleDefault.Background(tcell.ColorDarkBlue)
	styleCursor  = tcell.StyleDefault.Reverse(true)
	styleDivider = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Board draws a domain.Board with a movable cursor.
type Board struct {
	Box   *tview.Box
	board domain.Board
	busy  bool
	selX  int
	selY  int
}

// NewBoard returns an empty board widget with the cursor in the center.
func NewBoard() *Board {
	b := &Board{Box: tview.NewBox(), board: domain.New()}
	b.ResetSelection()
	b.Box.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		b.draw(screen, x, y)
		return x, y, boardWidth, boardHeight
	})
	return b
}

// SetBoard replaces the drawn position. busy hides legal-move highlights
// while the bot is thinking.
func (b *Board) SetBoard(board domain.Board, busy bool) {
	b.board = board
	b.busy = busy
}

// MoveSelection moves the cursor, staying on the 9x9 grid.
func (b *Board) MoveSelection(dx, dy int) {
	if x := b.selX + dx; x >= 0 && x < 9 {
		b.selX = x
	}
	if y := b.selY + dy; y >= 0 && y < 9 {
		b.selY = y
	}
}

func (b *Board) ResetSelection() {
	b.selX, b.selY = 4, 4
}

// Selected returns the cell under the cursor.
func (b *Board) Selected() domain.Coord {
	return domain.ToCoord(b.selX, b.selY)
}

// screenPos maps grid column gx and row gy to an offset inside the widget.
func screenPos(gx, gy int) (int, int) {
	return gx*2 + gx/3, gy + gy/3
}

func (b *Board) draw(screen tcell.Screen, left, top int) {
	last, hasLast := b.board.LastMove()
	for gy := 0; gy < 9; gy++ {
		for gx := 0; gx < 9; gx++ {
			c := domain.ToCoord(gx, gy)
			style := styleCell
			switch b.board.Macro(c.Macro()) {
			case domain.First:
				style = styleOwnerX
			case domain.Second:
				style = styleOwnerO
			default:
				if !b.busy && b.board.Legal(c) {
					style = styleLegal
				}
			}
			if hasLast && c == last {
				style = style.Bold(true).Underline(true)
			}
			if gx == b.selX && gy == b.selY {
				style = styleCursor
			}
			r := '·'
			if p := b.board.Tile(c); p != domain.Neutral {
				r = rune(p.Mark())
			}
			ox, oy := screenPos(gx, gy)
			screen.SetContent(left+ox, top+oy, r, nil, style)
			screen.SetContent(left+ox+1, top+oy, ' ', nil, style)
		}
	}
	for i := 1; i < 3; i++ {
		col := i*6 + i - 1
		row := i*3 + i - 1
		for gy := 0; gy < boardHeight; gy++ {
			screen.SetContent(left+col, top+gy, '│', nil, styleDivider)
		}
		for gx := 0; gx < boardWidth; gx++ {
			r := '─'
			if gx == 6 || gx == 13 {
				r = '┼'
			}
			screen.SetContent(left+gx, top+row, r, nil, styleDivider)
		}
	}
}
