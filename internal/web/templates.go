package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Ultimate Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.macros{display:grid;grid-template-columns:repeat(3,auto);gap:8px;width:max-content}
.macro{display:grid;grid-template-columns:repeat(3,2.2em);gap:2px;padding:3px;border:2px solid #ccc}
.macro.legal{border-color:#2a7}
.macro.owner-X{background:#fdd}.macro.owner-O{background:#ddf}
.macro button{width:2.2em;height:2.2em}
.macro button.last{outline:2px solid #f80}
</style>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Ultimate Tic-Tac-Toe</h1>
<form action="/game" method="post">
  <select name="mode"><option value="human">Two players</option><option value="bot">Against the bot</option></select>
  <input type="number" name="depth" min="1" max="9" placeholder="bot depth">
  <button>Create</button>
</form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div hx-sse="swap:board">{{template "board" .Board}}</div>
</div>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <p class="status">
  {{if .WonBy}}{{.WonBy}} wins{{else if .Done}}Draw{{else}}{{.Next}} to move{{end}}
  {{if .Thinking}} (bot thinking {{.Progress}}%){{end}}
  </p>
  <div class="macros">
  {{range .Macros}}
    <div class="macro{{if .Legal}} legal{{end}}{{if .Owner}} owner-{{.Owner}}{{end}}">
    {{range .Cells}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="coord" value="{{.Coord}}">
        <button type="submit"{{if .Last}} class="last"{{end}}{{if not .Playable}} disabled{{end}}>{{.Mark}}</button>
      </form>
    {{end}}
    </div>
  {{end}}
  </div>
  {{if .CanUndo}}
  <form hx-post="/game/{{.ID}}/undo" hx-target="#board" hx-swap="outerHTML" method="post"><button type="submit">Undo</button></form>
  {{end}}
  <code class="encoded">{{.Encoded}}</code>
</div>
`

type cellView struct {
	Coord    int
	Mark     string
	Playable bool
	Last     bool
}

type macroView struct {
	Owner string
	Legal bool
	Cells [9]cellView
}

type boardView struct {
	ID       string
	Macros   [9]macroView
	Next     string
	WonBy    string
	Done     bool
	Thinking bool
	Progress int
	CanUndo  bool
	Encoded  string
	Error    string
}

func newBoardView(gs app.GameState, errMsg string) boardView {
	b := gs.Board
	v := boardView{
		ID:       gs.ID,
		Next:     b.NextPlayer().String(),
		WonBy:    b.WonBy().String(),
		Done:     b.IsDone(),
		Thinking: gs.BotThinking,
		Progress: gs.BotProgress,
		CanUndo:  len(gs.History) > 0 && !b.IsDone(),
		Encoded:  domain.Encode(b),
		Error:    errMsg,
	}
	last, hasLast := b.LastMove()
	for om := 0; om < domain.NumMacros; om++ {
		m := &v.Macros[om]
		m.Owner = b.Macro(om).String()
		m.Legal = b.MacroLegal(om) && !b.IsDone()
		for os := 0; os < 9; os++ {
			c := domain.Coord(om*9 + os)
			m.Cells[os] = cellView{
				Coord:    int(c),
				Mark:     b.Tile(c).String(),
				Playable: b.Legal(c) && !gs.BotThinking,
				Last:     hasLast && c == last,
			}
		}
	}
	return v
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
		return c.Value
	}
	// Generate UUIDv4 for player ID
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
	return v
}
