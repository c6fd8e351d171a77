package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/bot"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

// firstLegal always answers with the lowest legal cell.
type firstLegal struct{}

func (firstLegal) Move(_ context.Context, b domain.Board, progress bot.ProgressFunc) (domain.Coord, bool) {
	moves := b.AvailableMoves()
	if len(moves) == 0 {
		return domain.NoCoord, false
	}
	if progress != nil {
		progress(100)
	}
	return moves[0], true
}

func (firstLegal) Cancel() {}
func (firstLegal) Reset()  {}

func newClient(t *testing.T) (*Client, *app.Service) {
	t.Helper()
	svc := app.NewService(app.WithBotFactory(func(int) (bot.Bot, error) { return firstLegal{}, nil }))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	c := New(svc, 1, zerolog.Nop())
	if err := c.NewGame(); err != nil {
		t.Fatalf("new game: %v", err)
	}
	t.Cleanup(c.Close)
	return c, svc
}

func press(c *Client, key tcell.Key, r rune) {
	c.handleKey(tcell.NewEventKey(key, r, tcell.ModNone))
}

func waitForMoves(t *testing.T, svc *app.Service, id string, n int) *app.GameState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		gs, ok := svc.Get(id)
		if ok && len(gs.Moves) == n && !gs.BotThinking {
			return gs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d moves", n)
	return nil
}

func TestCursorStaysOnGrid(t *testing.T) {
	b := NewBoard()
	if b.Selected() != 40 {
		t.Fatalf("cursor should start in the center, got %v", b.Selected())
	}
	for i := 0; i < 12; i++ {
		b.MoveSelection(-1, -1)
	}
	if b.Selected() != 0 {
		t.Fatalf("cursor should stop at the top-left cell, got %v", b.Selected())
	}
	for i := 0; i < 12; i++ {
		b.MoveSelection(1, 0)
	}
	if b.Selected() != domain.ToCoord(8, 0) {
		t.Fatalf("cursor should stop at the right edge, got %v", b.Selected())
	}
}

func TestBoardDrawsMarksAndDividers(t *testing.T) {
	b := NewBoard()
	board := domain.New()
	board.Play(40)
	board.Play(36)
	b.SetBoard(board, false)

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(40, 20)
	b.Box.SetRect(0, 0, 40, 20)
	b.Box.Draw(screen)

	at := func(gx, gy int) rune {
		x, y := screenPos(gx, gy)
		r, _, _, _ := screen.GetContent(x, y)
		return r
	}
	if r := at(4, 4); r != 'X' {
		t.Fatalf("expected X in the center, got %q", r)
	}
	if r := at(3, 3); r != 'O' {
		t.Fatalf("expected O at (3,3), got %q", r)
	}
	if r := at(0, 0); r != '·' {
		t.Fatalf("expected an empty cell, got %q", r)
	}
	if r, _, _, _ := screen.GetContent(6, 0); r != '│' {
		t.Fatalf("expected a column divider, got %q", r)
	}
	if r, _, _, _ := screen.GetContent(13, 7); r != '┼' {
		t.Fatalf("expected a divider crossing, got %q", r)
	}
}

func TestEnterPlaysAndBotReplies(t *testing.T) {
	c, svc := newClient(t)
	press(c, tcell.KeyEnter, 0)

	gs := waitForMoves(t, svc, c.gameID, 2)
	if gs.Moves[0] != 40 || gs.Board.Tile(40) != domain.First {
		t.Fatalf("expected X in the center, got %v", gs.Moves)
	}
	if gs.Moves[1] != 36 || gs.Board.Tile(36) != domain.Second {
		t.Fatalf("expected the bot to answer at 36, got %v", gs.Moves)
	}
	if gs.O != app.BotPlayer || gs.X != LocalPlayer {
		t.Fatalf("unexpected seats X=%q O=%q", gs.X, gs.O)
	}
}

func TestIllegalMoveShowsError(t *testing.T) {
	c, svc := newClient(t)
	press(c, tcell.KeyEnter, 0)
	waitForMoves(t, svc, c.gameID, 2)

	// The center is taken and play is sent to macro 0.
	press(c, tcell.KeyEnter, 0)
	if text := c.status.GetText(true); !strings.Contains(text, "Illegal move") {
		t.Fatalf("expected an illegal move alert, got %q", text)
	}
	for _, r := range "kkhh" {
		press(c, tcell.KeyRune, r)
	}
	press(c, tcell.KeyEnter, 0)
	if strings.Contains(c.status.GetText(true), "Illegal move") {
		t.Fatalf("alert should clear after a legal move")
	}
	gs := waitForMoves(t, svc, c.gameID, 4)
	if gs.Moves[2] != domain.ToCoord(2, 2) {
		t.Fatalf("expected X at (2,2), got %v", gs.Moves)
	}
}

func TestUndoAndNewGame(t *testing.T) {
	c, svc := newClient(t)
	press(c, tcell.KeyRune, 'u')
	if text := c.status.GetText(true); !strings.Contains(text, "Nothing to undo") {
		t.Fatalf("expected nothing-to-undo alert, got %q", text)
	}

	press(c, tcell.KeyEnter, 0)
	waitForMoves(t, svc, c.gameID, 2)
	press(c, tcell.KeyRune, 'u')
	gs, _ := svc.Get(c.gameID)
	if len(gs.Moves) != 0 || gs.Board.Ply() != 0 {
		t.Fatalf("undo should take back both plies, got %v", gs.Moves)
	}

	first := c.gameID
	press(c, tcell.KeyRune, 'n')
	if c.gameID == first {
		t.Fatalf("expected a new game")
	}
	if text := c.status.GetText(true); !strings.Contains(text, "Your move") {
		t.Fatalf("unexpected status %q", text)
	}
}

func TestStatusText(t *testing.T) {
	gs := app.GameState{Board: domain.New(), BotThinking: true, BotProgress: 40}
	if text := statusText(gs, ""); !strings.Contains(text, "Bot thinking... 40%") {
		t.Fatalf("unexpected status %q", text)
	}
	if text := statusText(app.GameState{Board: domain.New()}, "Illegal move"); !strings.Contains(text, "! Illegal move") {
		t.Fatalf("unexpected status %q", text)
	}
}
