package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/domain"
	"github.com/rs/zerolog"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "games.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func finishedRecord(t *testing.T, id string, ended time.Time) Record {
	t.Helper()
	b := domain.New()
	moves := []domain.Coord{1, 9, 2, 18, 0}
	for _, c := range moves {
		if _, err := b.Play(c); err != nil {
			t.Fatalf("play %v: %v", c, err)
		}
	}
	return Record{
		ID:         id,
		Mode:       "human",
		StartedAt:  ended.Add(-time.Minute),
		EndedAt:    ended,
		Winner:     b.WonBy(),
		FinalBoard: b,
		Moves:      moves,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	want := finishedRecord(t, "g1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != want.ID || got.Mode != want.Mode {
		t.Fatalf("unexpected record %+v", got)
	}
	if !got.EndedAt.Equal(want.EndedAt) || !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("timestamps changed: %v %v", got.StartedAt, got.EndedAt)
	}
	if !got.FinalBoard.Equal(want.FinalBoard) {
		t.Fatalf("board changed: %v", got.FinalBoard)
	}
	if len(got.Moves) != len(want.Moves) || got.Moves[4] != 0 {
		t.Fatalf("moves changed: %v", got.Moves)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, finishedRecord(t, id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	got, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestRecordJSON(t *testing.T) {
	r := finishedRecord(t, "g1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"winner":""`) || !strings.Contains(string(raw), `"final_board":"`) {
		t.Fatalf("unexpected json: %s", raw)
	}
}
