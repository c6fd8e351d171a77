package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/app"
	"github.com/rs/zerolog"
)

// NewServer wires routes and returns an http.Handler. It installs the board
// fragment renderer on s. archive may be nil.
func NewServer(s *app.Service, log zerolog.Logger, archive Lister) http.Handler {
	r := chi.NewRouter()
	h := &handlers{svc: s, tpl: loadTemplates(), log: log, archive: archive}
	s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })

	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Get("/archive", h.archived)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/join", h.join)
		r.Post("/play", h.play)
		r.Post("/undo", h.undo)
		r.Get("/board", h.boardText)
		r.Get("/events", h.events)
		r.Get("/ws", h.ws)
	})
	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("http-request")
		})
	}
}
