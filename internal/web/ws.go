package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireMessage is the JSON frame exchanged with a remote peer. Peers send
// "move" (coord, optionally the board they expect to play on), "sync" and
// "undo"; the server answers with "board" and "error" frames.
type wireMessage struct {
	Type     string `json:"type"`
	Coord    *int   `json:"coord,omitempty"`
	Board    string `json:"board,omitempty"`
	Next     string `json:"next,omitempty"`
	WonBy    string `json:"won_by,omitempty"`
	Done     bool   `json:"done,omitempty"`
	Seat     string `json:"seat,omitempty"`
	Thinking bool   `json:"thinking,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// wsPlayerID identifies a websocket peer by cookie, then by the "player"
// query parameter. Unknown peers get a fresh id in the upgrade response.
func wsPlayerID(r *http.Request) (string, http.Header) {
	if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
		return c.Value, nil
	}
	if p := r.URL.Query().Get("player"); p != "" {
		return p, nil
	}
	v := uuid.NewString()
	h := http.Header{}
	h.Add("Set-Cookie", (&http.Cookie{Name: "player_id", Value: v, Path: "/"}).String())
	return v, h
}

func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	pid, header := wsPlayerID(r)
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		h.log.Warn().Err(err).Str("game", id).Msg("ws-upgrade-failed")
		return
	}
	seat, _, _ := h.svc.Join(id, pid)
	log := h.log.With().Str("game", id).Str("player", pid).Logger()
	log.Info().Stringer("seat", seat).Msg("ws-connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	updates, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()

	replies := make(chan wireMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		if err := h.writePump(ctx, conn, id, seat, updates, replies); err != nil {
			log.Debug().Err(err).Msg("ws-write-failed")
		}
	}()
	defer func() {
		cancel()
		<-writerDone
	}()

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Info().Err(err).Msg("ws-disconnected")
			return
		}
		for _, reply := range h.handleWire(id, pid, seat, msg) {
			select {
			case replies <- reply:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleWire applies one peer frame. State changes reach the peer through
// the game subscription, so successful moves produce no direct reply.
func (h *handlers) handleWire(id, pid string, seat domain.Player, msg wireMessage) []wireMessage {
	fail := func(err error) []wireMessage {
		h.log.Debug().Err(err).Str("game", id).Str("type", msg.Type).Msg("ws-rejected")
		out := []wireMessage{{Type: "error", Error: errorMessage(err)}}
		if state, ok := h.stateMessage(id, seat); ok {
			out = append(out, state)
		}
		return out
	}
	switch msg.Type {
	case "move":
		if msg.Board != "" {
			if _, err := h.svc.Sync(id, msg.Board); err != nil {
				return fail(err)
			}
		}
		if msg.Coord == nil {
			return []wireMessage{{Type: "error", Error: "missing coord"}}
		}
		if _, err := h.svc.Play(id, pid, domain.Coord(*msg.Coord)); err != nil {
			return fail(err)
		}
		return nil
	case "sync":
		if _, err := h.svc.Sync(id, msg.Board); err != nil {
			return fail(err)
		}
		state, _ := h.stateMessage(id, seat)
		return []wireMessage{state}
	case "undo":
		if _, err := h.svc.Undo(id, pid); err != nil {
			return fail(err)
		}
		return nil
	default:
		return []wireMessage{{Type: "error", Error: "unknown message type " + msg.Type}}
	}
}

func (h *handlers) stateMessage(id string, seat domain.Player) (wireMessage, bool) {
	gs, ok := h.svc.Get(id)
	if !ok {
		return wireMessage{Type: "error", Error: "game not found"}, false
	}
	b := gs.Board
	return wireMessage{
		Type:     "board",
		Board:    domain.Encode(b),
		Next:     b.NextPlayer().String(),
		WonBy:    b.WonBy().String(),
		Done:     b.IsDone(),
		Seat:     seat.String(),
		Thinking: gs.BotThinking,
		Progress: gs.BotProgress,
	}, true
}

// writePump owns every write to conn: the initial state, a state frame per
// game update, direct replies and keepalive pings.
func (h *handlers) writePump(ctx context.Context, conn *websocket.Conn, id string, seat domain.Player, updates <-chan []byte, replies <-chan wireMessage) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	write := func(m wireMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m)
	}
	if state, ok := h.stateMessage(id, seat); ok {
		if err := write(state); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case _, ok := <-updates:
			if !ok {
				return nil
			}
			state, ok := h.stateMessage(id, seat)
			if !ok {
				return nil
			}
			if err := write(state); err != nil {
				return err
			}
		case m := <-replies:
			if err := write(m); err != nil {
				return err
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
