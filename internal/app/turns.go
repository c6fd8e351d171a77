package app

import (
	"context"
	"errors"
	"time"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

// moveEvent is a move chosen off the lock, to be applied by Run.
type moveEvent struct {
	game     string
	search   uint64
	mover    domain.Player
	coord    domain.Coord
	fallback bool
}

type progressEvent struct {
	game    string
	search  uint64
	percent int
}

// Run applies bot moves and progress reports until ctx is done. It must be
// called at most once.
func (s *Service) Run(ctx context.Context) error {
	defer s.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.moves:
			s.applyBotMove(ev)
		case ev := <-s.progress:
			s.applyProgress(ev)
		}
	}
}

func (s *Service) shutdown() {
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		s.stopBotLocked(g)
	}
}

// startBotLocked searches the current board of g in a new goroutine.
func (s *Service) startBotLocked(g *game) {
	s.stopBotLocked(g)
	ctx, cancel := context.WithTimeout(context.Background(), s.botTimeout)
	g.cancel = cancel
	g.BotThinking = true
	g.BotProgress = 0
	g.bot.Reset()

	id, seq, b, bt := g.ID, g.search, g.Board, g.bot
	log := s.log.With().Str("game", id).Uint64("search", seq).Logger()
	go func() {
		defer cancel()
		start := time.Now()
		c, ok := bt.Move(ctx, b, func(p int) {
			select {
			case s.progress <- progressEvent{game: id, search: seq, percent: p}:
			default:
			}
		})
		ev := moveEvent{game: id, search: seq, mover: b.NextPlayer(), coord: c}
		if !ok {
			if errors.Is(ctx.Err(), context.Canceled) {
				log.Debug().Msg("search-abandoned")
				return
			}
			// Out of time with nothing evaluated.
			ev.coord, ok = s.fallback.Move(context.Background(), b, nil)
			if !ok {
				return
			}
			ev.fallback = true
		}
		log.Debug().Stringer("coord", ev.coord).Bool("fallback", ev.fallback).Dur("took", time.Since(start)).Msg("bot-moved")
		select {
		case s.moves <- ev:
		case <-s.done:
		}
	}()
}

// stopBotLocked abandons any running search of g and invalidates its result.
func (s *Service) stopBotLocked(g *game) {
	g.search++
	g.BotThinking = false
	g.BotProgress = 0
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	if g.bot != nil {
		g.bot.Cancel()
	}
}

func (s *Service) applyBotMove(ev moveEvent) {
	s.mu.Lock()
	g, ok := s.games[ev.game]
	if !ok || g.search != ev.search || g.Board.NextPlayer() != ev.mover {
		s.mu.Unlock()
		s.log.Debug().Str("game", ev.game).Stringer("coord", ev.coord).Msg("stale-bot-move")
		return
	}
	g.search++
	g.BotThinking = false
	g.BotProgress = 0
	g.cancel = nil
	if err := s.applyLocked(g, ev.coord); err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Str("game", ev.game).Stringer("coord", ev.coord).Msg("bot-move-rejected")
		return
	}
	u := s.updateLocked(g)
	s.mu.Unlock()
	s.publish(u)
}

func (s *Service) applyProgress(ev progressEvent) {
	s.mu.Lock()
	g, ok := s.games[ev.game]
	if !ok || g.search != ev.search || !g.BotThinking || g.BotProgress == ev.percent {
		s.mu.Unlock()
		return
	}
	g.BotProgress = ev.percent
	u := s.updateLocked(g)
	s.mu.Unlock()
	s.publish(u)
}
