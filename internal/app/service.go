package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/bot"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/store"
	"github.com/rs/zerolog"
)

// Errors exposed by the service layer.
var (
	ErrNotFound       = errors.New("game not found")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrNotAPlayer     = errors.New("not a player")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrGameFinished   = errors.New("game finished")
	ErrDesync         = errors.New("connection desynchronized")
	ErrUnknownMode    = errors.New("unknown game mode")
	ErrBotUnavailable = errors.New("bot unavailable")
)

// BotPlayer is the seat id of the computer in ModeBot games.
const BotPlayer = "bot"

// Mode selects who plays the O seat.
type Mode int

const (
	ModeHuman Mode = iota
	ModeBot
)

func (m Mode) String() string {
	if m == ModeBot {
		return "bot"
	}
	return "human"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "human":
		return ModeHuman, nil
	case "bot":
		return ModeBot, nil
	default:
		return ModeHuman, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// GameOptions configures CreateGame. A zero BotDepth uses the service default.
type GameOptions struct {
	Mode     Mode
	BotDepth int
}

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID    string
	Mode  Mode
	Board domain.Board
	// History[i] is the board before Moves[i].
	History     []domain.Board
	Moves       []domain.Coord
	X           string
	O           string
	BotThinking bool
	BotProgress int
	Created     time.Time
	Updated     time.Time
}

// Seat returns the side held by playerID, or Neutral for spectators.
func (gs GameState) Seat(playerID string) domain.Player {
	switch {
	case playerID == "":
		return domain.Neutral
	case gs.X == playerID:
		return domain.First
	case gs.O == playerID:
		return domain.Second
	default:
		return domain.Neutral
	}
}

func (gs GameState) snapshot() GameState {
	cp := gs
	cp.History = append([]domain.Board(nil), gs.History...)
	cp.Moves = append([]domain.Coord(nil), gs.Moves...)
	return cp
}

// Archiver stores finished games.
type Archiver interface {
	Save(ctx context.Context, r store.Record) error
}

type game struct {
	GameState
	bot       bot.Bot
	search    uint64 // bumped whenever a pending bot result becomes stale
	cancel    context.CancelFunc
	archived  bool
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games and subscribers. Bot moves are computed off the
// caller's goroutine and applied by Run.
type Service struct {
	mu     sync.Mutex
	games  map[string]*game
	subs   map[string]map[*subscriber]struct{}
	render func(GameState) []byte

	log        zerolog.Logger
	archive    Archiver
	botDepth   int
	botTimeout time.Duration
	newBot     func(depth int) (bot.Bot, error)
	fallback   bot.Bot

	moves    chan moveEvent
	progress chan progressEvent
	done     chan struct{}
	stopOnce sync.Once
}

type Option func(*Service)

// WithRenderer sets the broadcast renderer.
func WithRenderer(renderer func(GameState) []byte) Option {
	return func(s *Service) { s.setRenderer(renderer) }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithArchiver stores every finished game through a.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

func WithBotDepth(depth int) Option {
	return func(s *Service) { s.botDepth = depth }
}

// WithBotTimeout bounds each bot turn. When it expires without a result a
// random legal move is played instead.
func WithBotTimeout(d time.Duration) Option {
	return func(s *Service) { s.botTimeout = d }
}

// WithBotFactory replaces the MinimaxBot constructor.
func WithBotFactory(f func(depth int) (bot.Bot, error)) Option {
	return func(s *Service) { s.newBot = f }
}

// WithFallbackBot replaces the random fallback used when a search times out.
func WithFallbackBot(b bot.Bot) Option {
	return func(s *Service) { s.fallback = b }
}

// NewService creates a service. Run must be running for bot games to progress.
func NewService(opts ...Option) *Service {
	s := &Service{
		games:      make(map[string]*game),
		subs:       make(map[string]map[*subscriber]struct{}),
		log:        zerolog.Nop(),
		botDepth:   4,
		botTimeout: 5 * time.Second,
		fallback:   bot.NewRandomBot(),
		moves:      make(chan moveEvent, 16),
		progress:   make(chan progressEvent, 64),
		done:       make(chan struct{}),
	}
	s.setRenderer(nil)
	for _, opt := range opts {
		opt(s)
	}
	if s.newBot == nil {
		// The search stops on its own shortly before the context deadline,
		// so it can still answer with its best complete root move.
		limit := s.botTimeout * 9 / 10
		s.newBot = func(depth int) (bot.Bot, error) {
			return bot.NewMinimaxBot(depth, bot.WithLogger(s.log), bot.WithTimeLimit(limit))
		}
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRenderer(renderer)
}

func (s *Service) setRenderer(renderer func(GameState) []byte) {
	if renderer == nil {
		renderer = func(gs GameState) []byte { return nil }
	}
	s.render = renderer
}

// CreateGame creates and registers a new game.
func (s *Service) CreateGame(opts GameOptions) (*GameState, error) {
	g := &game{}
	switch opts.Mode {
	case ModeHuman:
	case ModeBot:
		depth := opts.BotDepth
		if depth == 0 {
			depth = s.botDepth
		}
		b, err := s.newBot(depth)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBotUnavailable, err)
		}
		g.bot = b
		g.O = BotPlayer
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, opts.Mode)
	}

	now := time.Now()
	g.ID = uuid.NewString()
	g.Mode = opts.Mode
	g.Board = domain.New()
	g.Created, g.Updated = now, now

	s.mu.Lock()
	s.games[g.ID] = g
	cp := g.snapshot()
	s.mu.Unlock()
	s.log.Info().Str("game", g.ID).Stringer("mode", g.Mode).Msg("game-created")
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := g.snapshot()
	return &cp, true
}

// Join assigns a seat to the player if available; returns Neutral for spectators.
func (s *Service) Join(id, playerID string) (domain.Player, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return domain.Neutral, nil, ErrNotFound
	}
	side := domain.Neutral
	if g.X == "" || g.X == playerID {
		g.X = playerID
		side = domain.First
	} else if g.O == "" || g.O == playerID {
		g.O = playerID
		side = domain.Second
	}
	g.Updated = time.Now()
	cp := g.snapshot()
	return side, &cp, nil
}

// Play validates seat and turn, applies a move, updates timestamps, and broadcasts.
// In bot games it then starts the bot's reply.
func (s *Service) Play(id, playerID string, c domain.Coord) (*GameState, error) {
	s.mu.Lock()
	g, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	seat := g.Seat(playerID)
	if seat == domain.Neutral || playerID == BotPlayer {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if !g.Board.IsDone() && seat != g.Board.NextPlayer() {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	if err := s.applyLocked(g, c); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if g.Mode == ModeBot && !g.Board.IsDone() {
		s.startBotLocked(g)
	}
	u := s.updateLocked(g)
	s.mu.Unlock()

	s.publish(u)
	return &u.state, nil
}

// Undo takes back the last move. In bot games it takes back the bot's reply
// as well, so the human is to move again, and abandons a running search.
func (s *Service) Undo(id, playerID string) (*GameState, error) {
	s.mu.Lock()
	g, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if g.Seat(playerID) == domain.Neutral || playerID == BotPlayer {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if g.Board.IsDone() {
		s.mu.Unlock()
		return nil, ErrGameFinished
	}
	n := 1
	if g.Mode == ModeBot && g.Board.NextPlayer() == domain.First {
		n = 2
	}
	if len(g.History) < n {
		s.mu.Unlock()
		return nil, ErrNothingToUndo
	}
	s.stopBotLocked(g)
	keep := len(g.History) - n
	g.Board = g.History[keep]
	g.History = g.History[:keep]
	g.Moves = g.Moves[:keep]
	g.Updated = time.Now()
	u := s.updateLocked(g)
	s.mu.Unlock()

	s.log.Info().Str("game", id).Int("plies", n).Msg("move-undone")
	s.publish(u)
	return &u.state, nil
}

// Sync checks a peer's serialized board against the game. A malformed board
// reports domain.ErrInvalidSerializedBoard, a different one ErrDesync.
func (s *Service) Sync(id, encoded string) (*GameState, error) {
	peer, err := domain.Decode(encoded)
	if err != nil {
		return nil, err
	}
	gs, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if !peer.Equal(gs.Board) {
		s.log.Warn().Str("game", id).Str("peer", encoded).Str("ours", domain.Encode(gs.Board)).Msg("board-desync")
		return gs, ErrDesync
	}
	return gs, nil
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		// create lazily to allow subscriptions before CreateGame in some flows
		now := time.Now()
		s.games[id] = &game{GameState: GameState{ID: id, Board: domain.New(), Created: now, Updated: now}}
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

func (s *Service) applyLocked(g *game, c domain.Coord) error {
	next, err := g.Board.Apply(c)
	if err != nil {
		return err
	}
	g.History = append(g.History, g.Board)
	g.Moves = append(g.Moves, c)
	g.Board = next
	g.Updated = time.Now()
	s.log.Info().Str("game", g.ID).Stringer("player", g.History[len(g.History)-1].NextPlayer()).Stringer("coord", c).Msg("move-applied")
	return nil
}

// update is a snapshot taken under the lock and published after it.
type update struct {
	state   GameState
	payload []byte
	subs    map[*subscriber]struct{}
	record  *store.Record
}

func (s *Service) updateLocked(g *game) update {
	u := update{state: g.snapshot(), subs: s.copySubsLocked(g.ID)}
	u.payload = s.render(u.state)
	if g.Board.IsDone() && !g.archived && s.archive != nil {
		g.archived = true
		u.record = &store.Record{
			ID:         g.ID,
			Mode:       g.Mode.String(),
			StartedAt:  g.Created,
			EndedAt:    g.Updated,
			Winner:     g.Board.WonBy(),
			FinalBoard: g.Board,
			Moves:      u.state.Moves,
		}
	}
	return u
}

func (s *Service) publish(u update) {
	var toDrop []*subscriber
	// Fan-out; drop slow subscribers by closing and marking for deletion
	for sub := range u.subs {
		select {
		case sub.ch <- u.payload:
		default:
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[u.state.ID]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
		s.log.Debug().Str("game", u.state.ID).Int("dropped", len(toDrop)).Msg("slow-subscribers-dropped")
	}

	if u.record != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.archive.Save(ctx, *u.record); err != nil {
			s.log.Error().Err(err).Str("game", u.state.ID).Msg("archive-failed")
		}
	}
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
