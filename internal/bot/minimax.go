package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
	"github.com/rs/zerolog"
)

// MinimaxBot runs a depth-bounded negamax search with alpha-beta pruning.
type MinimaxBot struct {
	depth int
	limit time.Duration
	log   zerolog.Logger

	cancelled atomic.Bool
}

type Option func(*MinimaxBot)

// WithTimeLimit bounds the wall-clock time of each Move. Zero means no bound.
func WithTimeLimit(d time.Duration) Option {
	return func(m *MinimaxBot) { m.limit = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *MinimaxBot) { m.log = l }
}

func NewMinimaxBot(depth int, opts ...Option) (*MinimaxBot, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, depth)
	}
	m := &MinimaxBot{depth: depth, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *MinimaxBot) Depth() int { return m.depth }

func (m *MinimaxBot) Cancel() { m.cancelled.Store(true) }

func (m *MinimaxBot) Reset() { m.cancelled.Store(false) }

// Move returns the best move at the configured depth. When stopped early it
// returns the best root move whose subtree was searched completely.
func (m *MinimaxBot) Move(ctx context.Context, b domain.Board, progress ProgressFunc) (domain.Coord, bool) {
	if b.IsDone() {
		return domain.NoCoord, false
	}
	s := &search{ctx: ctx, cancelled: &m.cancelled, prune: true}
	if m.limit > 0 {
		s.timer = NewTimer(m.limit)
		s.timer.Start()
	}
	start := time.Now()
	c, score, ok := s.root(b, m.depth, progress)
	m.log.Debug().
		Int("depth", m.depth).
		Str("move", c.String()).
		Int("score", score).
		Uint64("nodes", s.nodes).
		Bool("halted", s.halted).
		Dur("took", time.Since(start)).
		Msg("search-done")
	return c, ok
}

type search struct {
	ctx       context.Context
	cancelled *atomic.Bool
	timer     *Timer
	prune     bool

	halted bool
	nodes  uint64
}

// stop polls every cancellation source. Once it reports true it stays true.
func (s *search) stop() bool {
	if s.halted {
		return true
	}
	switch {
	case s.ctx.Err() != nil:
	case s.cancelled != nil && s.cancelled.Load():
	case s.timer != nil && s.timer.Expired():
	default:
		return false
	}
	s.halted = true
	return true
}

func (s *search) root(b domain.Board, depth int, progress ProgressFunc) (domain.Coord, int, bool) {
	moves := b.AvailableMoves()
	sign := b.NextPlayer().Sign()
	best, bestVal := domain.NoCoord, -inf
	alpha, beta := -inf, inf
	for i, c := range moves {
		if s.stop() {
			break
		}
		child := b
		child.Play(c)
		v := -s.negamax(child, depth-1, -beta, -alpha, -sign, 1)
		if s.halted {
			break
		}
		if best == domain.NoCoord || v > bestVal {
			best, bestVal = c, v
		}
		if s.prune && v > alpha {
			alpha = v
		}
		if progress != nil {
			progress((i + 1) * 100 / len(moves))
		}
	}
	return best, bestVal, best != domain.NoCoord
}

// negamax scores b for the player to move; sign is +1 when that is First.
func (s *search) negamax(b domain.Board, depth, alpha, beta, sign, ply int) int {
	s.nodes++
	if s.stop() {
		return 0
	}
	if w := b.WonBy(); w != domain.Neutral {
		// Nearer wins score higher.
		return sign * w.Sign() * (WinScore - ply)
	}
	if b.IsDone() {
		return 0
	}
	if depth == 0 {
		return sign * Evaluate(b)
	}

	var buf [domain.NumCells]domain.Coord
	best := -inf
	for _, c := range b.AppendMoves(buf[:0]) {
		child := b
		child.Play(c)
		v := -s.negamax(child, depth-1, -beta, -alpha, -sign, ply+1)
		if v > best {
			best = v
		}
		if !s.prune {
			continue
		}
		if v > alpha {
			alpha = v
		}
		if alpha >= beta {
			break
		}
	}
	return best
}
