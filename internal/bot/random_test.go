package bot

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

func TestSeededRandomBotIsReproducible(t *testing.T) {
	a, b := NewSeededRandomBot(42), NewSeededRandomBot(42)
	ba, bb := domain.New(), domain.New()
	for !ba.IsDone() {
		ca, oka := a.Move(context.Background(), ba, nil)
		cb, okb := b.Move(context.Background(), bb, nil)
		if !oka || !okb || ca != cb {
			t.Fatalf("seeded bots diverged: %v/%v vs %v/%v", ca, oka, cb, okb)
		}
		if _, err := ba.Play(ca); err != nil {
			t.Fatalf("random bot chose illegal move %v: %v", ca, err)
		}
		bb.Play(cb)
	}
	if _, ok := a.Move(context.Background(), ba, nil); ok {
		t.Fatalf("expected no move on a done board")
	}
}

func TestRandomBotPicksLegalMoves(t *testing.T) {
	r := NewRandomBot()
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		b := randomPosition(rng, rng.Intn(60))
		c, ok := r.Move(context.Background(), b, nil)
		if b.IsDone() != !ok {
			t.Fatalf("done=%v but ok=%v", b.IsDone(), ok)
		}
		if ok && !b.Legal(c) {
			t.Fatalf("%v: illegal move %v", b, c)
		}
	}
}

func TestTimer(t *testing.T) {
	now := time.Unix(0, 0)
	tm := NewTimer(time.Second)
	tm.now = func() time.Time { return now }

	if tm.TimeLeft() != time.Second {
		t.Fatalf("expected full budget before Start, got %v", tm.TimeLeft())
	}
	tm.Start()
	now = now.Add(300 * time.Millisecond)
	if got := tm.TimeLeft(); got != 700*time.Millisecond {
		t.Fatalf("expected 700ms left, got %v", got)
	}
	now = now.Add(time.Second)
	if got := tm.TimeLeft(); got != 0 || !tm.Expired() {
		t.Fatalf("expected expiry clamped at 0, got %v", got)
	}

	tm.Start()
	tm.Interrupt()
	tm.Interrupt()
	if tm.TimeLeft() != 0 {
		t.Fatalf("expected 0 after Interrupt")
	}
}
