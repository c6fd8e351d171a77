// Package bot picks moves for the computer side of a game.
package bot

import (
	"context"
	"errors"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

// ErrInvalidDepth is returned when a search bot is configured with a depth
// below one.
var ErrInvalidDepth = errors.New("bot: search depth must be at least 1")

// ProgressFunc receives an estimated completion percentage in [0, 100].
type ProgressFunc func(percent int)

// Bot chooses a move for the player to move on b. The board is passed by
// value, so the search owns its copy.
//
// Move reports false when b is done or when the search was stopped before
// any move was fully evaluated. Cancellation through ctx or Cancel is not an
// error. A nil progress func is allowed.
type Bot interface {
	Move(ctx context.Context, b domain.Board, progress ProgressFunc) (domain.Coord, bool)
	// Cancel stops a running Move and every later one until Reset.
	Cancel()
	Reset()
}
