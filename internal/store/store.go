// Package store archives finished games in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("game not in archive")

// Record is one finished game.
type Record struct {
	ID         string         `json:"id"`
	Mode       string         `json:"mode"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at"`
	Winner     domain.Player  `json:"-"`
	FinalBoard domain.Board   `json:"final_board"`
	Moves      []domain.Coord `json:"moves"`
}

// WinnerMark is "X", "O" or "" for a tie.
func (r Record) WinnerMark() string { return r.Winner.String() }

func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		Winner string `json:"winner"`
	}{plain(r), r.WinnerMark()})
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	ended_at DATETIME NOT NULL,
	mode TEXT NOT NULL,
	winner TEXT NOT NULL,
	final_board TEXT NOT NULL,
	moves TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS games_ended_at ON games(ended_at);
`

// Store is a SQLite backed game archive. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens or creates the database at path. ":memory:" is accepted for
// throwaway archives.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Info().Str("path", path).Msg("archive-opened")
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save inserts r, replacing an earlier record with the same id.
func (s *Store) Save(ctx context.Context, r Record) error {
	moves, err := json.Marshal(r.Moves)
	if err != nil {
		return fmt.Errorf("encode moves: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO games (id, started_at, ended_at, mode, winner, final_board, moves)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC(), r.EndedAt.UTC(), r.Mode, r.WinnerMark(), domain.Encode(r.FinalBoard), string(moves),
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", r.ID, err)
	}
	s.log.Debug().Str("game", r.ID).Str("winner", r.WinnerMark()).Msg("game-archived")
	return nil
}

// Get loads one record.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, mode, winner, final_board, moves
		FROM games WHERE id = ?`, id)
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// List returns up to limit records, most recently finished first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, mode, winner, final_board, moves
		FROM games ORDER BY ended_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (Record, error) {
	var (
		r             Record
		winner, board string
		moves         string
	)
	if err := sc.Scan(&r.ID, &r.StartedAt, &r.EndedAt, &r.Mode, &winner, &board, &moves); err != nil {
		return Record{}, err
	}
	b, err := domain.Decode(board)
	if err != nil {
		return Record{}, fmt.Errorf("game %s: %w", r.ID, err)
	}
	r.FinalBoard = b
	r.Winner = b.WonBy()
	if err := json.Unmarshal([]byte(moves), &r.Moves); err != nil {
		return Record{}, fmt.Errorf("game %s: decode moves: %w", r.ID, err)
	}
	return r, nil
}
