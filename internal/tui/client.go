package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

// LocalPlayer is the player id the terminal user joins games with.
const LocalPlayer = "terminal"

const controls = `
  hjkl/↑↓←→ move   ⏎ play
  u undo   n new game   q quit`

// Client plays bot games hosted by an app.Service. The service's Run loop
// must be running for the bot to reply.
type Client struct {
	app    *tview.Application
	svc    *app.Service
	board  *Board
	status *tview.TextView
	root   *tview.Flex
	log    zerolog.Logger
	depth  int

	gameID  string
	state   app.GameState
	errText string
	unwatch context.CancelFunc
}

// New builds the terminal layout. depth 0 uses the service default.
func New(svc *app.Service, depth int, log zerolog.Logger) *Client {
	c := &Client{
		app:    tview.NewApplication(),
		svc:    svc,
		board:  NewBoard(),
		status: tview.NewTextView(),
		log:    log,
		depth:  depth,
	}
	c.status.SetBorder(true)
	c.status.SetBorderPadding(0, 0, 1, 1)
	c.status.SetTitle(" Status ")
	c.status.SetTitleAlign(tview.AlignLeft)

	framed := tview.NewFrame(c.board.Box).SetBorders(1, 1, 0, 0, 2, 2)
	framed.SetBorder(true).SetTitle(" Ultimate Tic-Tac-Toe ")
	c.root = tview.NewFlex().
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(framed, boardHeight+4, 0, true).
			AddItem(nil, 0, 1, false), boardWidth+6, 0, true).
		AddItem(c.status, 0, 1, false)

	c.app.SetRoot(c.root, true).SetFocus(c.board.Box)
	c.app.SetInputCapture(c.handleKey)
	return c
}

// Run starts a game and blocks until the user quits.
func (c *Client) Run() error {
	if err := c.NewGame(); err != nil {
		return err
	}
	defer c.Close()
	return c.app.Run()
}

// Close stops watching the current game.
func (c *Client) Close() {
	if c.unwatch != nil {
		c.unwatch()
		c.unwatch = nil
	}
}

// NewGame abandons the current game and starts a fresh one against the bot.
func (c *Client) NewGame() error {
	gs, err := c.svc.CreateGame(app.GameOptions{Mode: app.ModeBot, BotDepth: c.depth})
	if err != nil {
		return err
	}
	_, gs, err = c.svc.Join(gs.ID, LocalPlayer)
	if err != nil {
		return err
	}
	c.Close()
	ctx, cancel := context.WithCancel(context.Background())
	c.unwatch = cancel
	c.gameID = gs.ID
	c.errText = ""
	c.board.ResetSelection()
	c.show(*gs)
	go c.watch(ctx, gs.ID)
	c.log.Info().Str("game", gs.ID).Msg("tui-game-started")
	return nil
}

// watch redraws on every update of game id, resubscribing if the service
// drops the subscription.
func (c *Client) watch(ctx context.Context, id string) {
	for ctx.Err() == nil {
		updates, unsub := c.svc.Subscribe(ctx, id)
		c.refresh(id)
		for range updates {
			c.refresh(id)
		}
		unsub()
	}
}

func (c *Client) refresh(id string) {
	gs, ok := c.svc.Get(id)
	if !ok {
		return
	}
	c.app.QueueUpdateDraw(func() {
		if c.gameID == id {
			c.show(*gs)
		}
	})
}

// show must run on the tview event loop once the application is running.
func (c *Client) show(gs app.GameState) {
	c.state = gs
	c.board.SetBoard(gs.Board, gs.BotThinking)
	c.status.SetText(statusText(gs, c.errText))
}

func (c *Client) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyUp:
		c.board.MoveSelection(0, -1)
	case tcell.KeyDown:
		c.board.MoveSelection(0, 1)
	case tcell.KeyLeft:
		c.board.MoveSelection(-1, 0)
	case tcell.KeyRight:
		c.board.MoveSelection(1, 0)
	case tcell.KeyEnter:
		c.play()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'k':
			c.board.MoveSelection(0, -1)
		case 'j':
			c.board.MoveSelection(0, 1)
		case 'h':
			c.board.MoveSelection(-1, 0)
		case 'l':
			c.board.MoveSelection(1, 0)
		case 'u':
			c.undo()
		case 'n':
			if err := c.NewGame(); err != nil {
				c.fail(err)
			}
		case 'q':
			c.Close()
			c.app.Stop()
		default:
			return ev
		}
	default:
		return ev
	}
	return nil
}

func (c *Client) play() {
	gs, err := c.svc.Play(c.gameID, LocalPlayer, c.board.Selected())
	c.report(gs, err)
}

func (c *Client) undo() {
	gs, err := c.svc.Undo(c.gameID, LocalPlayer)
	c.report(gs, err)
}

func (c *Client) report(gs *app.GameState, err error) {
	if err != nil {
		c.fail(err)
		return
	}
	c.errText = ""
	c.show(*gs)
}

func (c *Client) fail(err error) {
	c.log.Debug().Err(err).Str("game", c.gameID).Msg("tui-action-rejected")
	c.errText = errorText(err)
	if gs, ok := c.svc.Get(c.gameID); ok {
		c.show(*gs)
		return
	}
	c.status.SetText(statusText(c.state, c.errText))
}

func errorText(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Wait for the bot"
	case errors.Is(err, app.ErrGameFinished):
		return "Game is over"
	case errors.Is(err, app.ErrNothingToUndo):
		return "Nothing to undo"
	case errors.Is(err, domain.ErrIllegalMove):
		return "Illegal move"
	default:
		return err.Error()
	}
}

func statusText(gs app.GameState, errText string) string {
	b := gs.Board
	var line string
	switch {
	case b.WonBy() == domain.First:
		line = "  You win!"
	case b.WonBy() == domain.Second:
		line = "  The bot wins"
	case b.IsDone():
		line = "  Draw"
	case gs.BotThinking:
		line = fmt.Sprintf("  Bot thinking... %d%%", gs.BotProgress)
	default:
		line = "  Your move (X)"
	}
	out := fmt.Sprintf("%s\n  Moves: %d\n", line, len(gs.Moves))
	if errText != "" {
		out += "\n  ! " + errText + "\n"
	}
	return out + controls
}
