package bot

import (
	"context"
	"math/rand"
	"sync"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
	"lukechampine.com/frand"
)

type intner interface {
	Intn(n int) int
}

type frandSource struct{}

func (frandSource) Intn(n int) int { return frand.Intn(n) }

// RandomBot plays a uniformly random legal move.
type RandomBot struct {
	mu  sync.Mutex
	rng intner
}

// NewRandomBot returns a RandomBot backed by a fast CSPRNG.
func NewRandomBot() *RandomBot {
	return &RandomBot{rng: frandSource{}}
}

// NewSeededRandomBot returns a RandomBot whose choices repeat for a given seed.
func NewSeededRandomBot(seed int64) *RandomBot {
	return &RandomBot{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomBot) Move(_ context.Context, b domain.Board, progress ProgressFunc) (domain.Coord, bool) {
	moves := b.AvailableMoves()
	if len(moves) == 0 {
		return domain.NoCoord, false
	}
	r.mu.Lock()
	c := moves[r.rng.Intn(len(moves))]
	r.mu.Unlock()
	if progress != nil {
		progress(100)
	}
	return c, true
}

func (r *RandomBot) Cancel() {}

func (r *RandomBot) Reset() {}
