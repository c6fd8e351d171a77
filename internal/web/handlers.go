package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/store"
	"github.com/rs/zerolog"
)

// Lister lists archived games.
type Lister interface {
	List(ctx context.Context, limit int) ([]store.Record, error)
}

type handlers struct {
	svc     *app.Service
	tpl     *templates
	log     zerolog.Logger
	archive Lister
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, errMsg))
}

// errorMessage maps service and domain errors to user-facing text.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, app.ErrGameFinished):
		return "Game is over"
	case errors.Is(err, app.ErrNothingToUndo):
		return "Nothing to undo"
	case errors.Is(err, app.ErrDesync), errors.Is(err, domain.ErrInvalidSerializedBoard):
		return "connection desynchronized"
	case errors.Is(err, domain.ErrIllegalMove):
		return "Illegal move"
	default:
		return "Invalid move"
	}
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", nil))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	mode, err := app.ParseMode(r.Form.Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts := app.GameOptions{Mode: mode}
	if d := r.Form.Get("depth"); d != "" {
		if opts.BotDepth, err = strconv.Atoi(d); err != nil {
			http.Error(w, "depth must be a number", http.StatusBadRequest)
			return
		}
	}
	gs, err := h.svc.CreateGame(opts)
	if errors.Is(err, app.ErrBotUnavailable) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	_, _, _ = h.svc.Join(id, pid)

	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := struct {
		ID    string
		Board boardView
	}{ID: gs.ID, Board: newBoardView(*gs, "")}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	// Render page with embedded board container
	_, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(id, pid)
	if err != nil || gs == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, ""))
}

// formCoord reads either "coord" or the grid pair "x", "y".
func formCoord(r *http.Request) (domain.Coord, error) {
	_ = r.ParseForm()
	if s := r.Form.Get("coord"); s != "" {
		return domain.ParseCoord(s)
	}
	x, errX := strconv.Atoi(r.Form.Get("x"))
	y, errY := strconv.Atoi(r.Form.Get("y"))
	if errX != nil || errY != nil || x < 0 || x > 8 || y < 0 || y > 8 {
		return domain.NoCoord, fmt.Errorf("%w: missing coordinate", domain.ErrIllegalMove)
	}
	return domain.ToCoord(x, y), nil
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	c, err := formCoord(r)
	var gs *app.GameState
	if err == nil {
		gs, err = h.svc.Play(id, pid, c)
	}
	h.writeResult(w, r, id, gs, err)
}

func (h *handlers) undo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	gs, err := h.svc.Undo(id, pid)
	h.writeResult(w, r, id, gs, err)
}

// writeResult renders the board fragment, with an alert when err is set.
func (h *handlers) writeResult(w http.ResponseWriter, r *http.Request, id string, gs *app.GameState, err error) {
	var errMsg string
	if err != nil {
		if gs == nil {
			if g, ok := h.svc.Get(id); ok {
				gs = g
			}
		}
		errMsg = errorMessage(err)
		h.log.Debug().Err(err).Str("game", id).Msg("request-rejected")
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, errMsg))
}

func (h *handlers) boardText(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, domain.Encode(gs.Board))
}

func (h *handlers) archived(w http.ResponseWriter, r *http.Request) {
	records := []store.Record{}
	if h.archive != nil {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		list, err := h.archive.List(r.Context(), limit)
		if err != nil {
			h.log.Error().Err(err).Msg("archive-list-failed")
			http.Error(w, "archive unavailable", http.StatusInternalServerError)
			return
		}
		records = append(records, list...)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, _ := h.svc.Subscribe(ctx, id)
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: board\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", sseData(b))
			flusher.Flush()
		}
	}
}

// sseData folds a multi-line payload onto one data line.
func sseData(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c == '\n' || c == '\r' {
			continue
		}
		out = append(out, c)
	}
	return out
}
