package bot

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

// decodeBoard builds a position from X and O cells plus mask and last move.
func decodeBoard(t *testing.T, xs, os []domain.Coord, mask, last string) domain.Board {
	t.Helper()
	cells := []byte(strings.Repeat(".", domain.NumCells))
	for _, c := range xs {
		cells[c] = 'X'
	}
	for _, c := range os {
		cells[c] = 'O'
	}
	b, err := domain.Decode(string(cells) + "/" + mask + "/" + last)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return b
}

// randomPosition plays n random moves from the empty board, stopping early if
// the game ends.
func randomPosition(rng *rand.Rand, n int) domain.Board {
	b := domain.New()
	for i := 0; i < n && !b.IsDone(); i++ {
		moves := b.AvailableMoves()
		b.Play(moves[rng.Intn(len(moves))])
	}
	return b
}

func newBot(t *testing.T, depth int, opts ...Option) *MinimaxBot {
	t.Helper()
	m, err := NewMinimaxBot(depth, opts...)
	if err != nil {
		t.Fatalf("NewMinimaxBot(%d): %v", depth, err)
	}
	return m
}

func TestNewMinimaxBotRejectsDepth(t *testing.T) {
	for _, d := range []int{0, -1} {
		if _, err := NewMinimaxBot(d); !errors.Is(err, ErrInvalidDepth) {
			t.Fatalf("depth %d: expected ErrInvalidDepth, got %v", d, err)
		}
	}
}

func TestMinimaxReturnsLegalMoves(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := newBot(t, 2)
	for i := 0; i < 40; i++ {
		b := randomPosition(rng, rng.Intn(50))
		c, ok := m.Move(context.Background(), b, nil)
		if b.IsDone() {
			if ok {
				t.Fatalf("expected no move on a done board, got %v", c)
			}
			continue
		}
		if !ok || !b.Legal(c) {
			t.Fatalf("%v: illegal move %v (ok=%v)", b, c, ok)
		}
	}
}

func TestMinimaxTakesImmediateWin(t *testing.T) {
	// X owns macros 0 and 4 and holds cells 0 and 4 of macro 8; 80 wins.
	xs := []domain.Coord{0, 1, 2, 36, 37, 38, 72, 76}
	os := []domain.Coord{9, 10, 12, 18, 19, 21, 27, 35}
	b := decodeBoard(t, xs, os, "000000001", "35")
	if b.NextPlayer() != domain.First {
		t.Fatalf("expected X to move")
	}
	for _, depth := range []int{1, 2, 3} {
		c, ok := newBot(t, depth).Move(context.Background(), b, nil)
		if !ok || c != 80 {
			t.Fatalf("depth %d: expected winning move 80, got %v", depth, c)
		}
	}
}

func TestAlphaBetaMatchesPlainNegamax(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 30; i++ {
		b := randomPosition(rng, 5+rng.Intn(40))
		if b.IsDone() {
			continue
		}
		depth := 2
		if len(b.AvailableMoves()) <= 9 {
			depth = 3
		}
		pruned := &search{ctx: context.Background(), prune: true}
		plain := &search{ctx: context.Background()}
		pc, pv, _ := pruned.root(b, depth, nil)
		nc, nv, _ := plain.root(b, depth, nil)
		if pc != nc || pv != nv {
			t.Fatalf("%v depth %d: alpha-beta %v/%d, plain %v/%d", b, depth, pc, pv, nc, nv)
		}
		if pruned.nodes > plain.nodes {
			t.Fatalf("pruning visited more nodes: %d > %d", pruned.nodes, plain.nodes)
		}
	}
}

func TestMinimaxCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := newBot(t, 3)
	if c, ok := m.Move(ctx, domain.New(), nil); ok {
		t.Fatalf("expected no move from a cancelled search, got %v", c)
	}

	m.Cancel()
	if _, ok := m.Move(context.Background(), domain.New(), nil); ok {
		t.Fatalf("expected no move after Cancel")
	}
	m.Reset()
	b := domain.New()
	b.Play(40)
	if c, ok := m.Move(context.Background(), b, nil); !ok || !b.Legal(c) {
		t.Fatalf("expected a legal move after Reset, got %v %v", c, ok)
	}
}

func TestMinimaxTimeLimitStopsSearch(t *testing.T) {
	m := newBot(t, 8, WithTimeLimit(50*time.Millisecond))
	b := domain.New()
	start := time.Now()
	c, ok := m.Move(context.Background(), b, nil)
	if took := time.Since(start); took > 5*time.Second {
		t.Fatalf("search ignored its time limit: %v", took)
	}
	if ok && !b.Legal(c) {
		t.Fatalf("illegal move %v", c)
	}
}

func TestMinimaxReportsProgress(t *testing.T) {
	b := domain.New()
	b.Play(40)
	var got []int
	m := newBot(t, 2)
	if _, ok := m.Move(context.Background(), b, func(p int) { got = append(got, p) }); !ok {
		t.Fatalf("expected a move")
	}
	if len(got) != len(b.AvailableMoves()) {
		t.Fatalf("expected one report per root move, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("progress went backwards: %v", got)
		}
	}
	if got[len(got)-1] != 100 {
		t.Fatalf("expected final progress 100, got %d", got[len(got)-1])
	}
}

func TestMinimaxDoneBoard(t *testing.T) {
	xs := []domain.Coord{0, 1, 2, 36, 37, 38, 72, 73, 74}
	os := []domain.Coord{9, 10, 12, 18, 19, 21, 27, 28}
	b := decodeBoard(t, xs, os, "001000000", "74")
	if _, ok := newBot(t, 2).Move(context.Background(), b, nil); ok {
		t.Fatalf("expected no move on a won board")
	}
}

func TestEvaluate(t *testing.T) {
	if got := Evaluate(domain.New()); got != 0 {
		t.Fatalf("empty board should score 0, got %d", got)
	}
	center := domain.New()
	center.Play(40)
	edge := domain.New()
	edge.Play(1)
	if Evaluate(center) <= Evaluate(edge) {
		t.Fatalf("center (%d) should outscore an edge (%d)", Evaluate(center), Evaluate(edge))
	}

	// X owns a macro while O holds the center of the center.
	xs := []domain.Coord{0, 1, 2}
	os := []domain.Coord{40, 44}
	b := decodeBoard(t, xs, os, "001000000", "2")
	if Evaluate(b) <= 0 {
		t.Fatalf("macro ownership should dominate, got %d", Evaluate(b))
	}
}
