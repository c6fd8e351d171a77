package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEncodeInitialAndAfterCenter(t *testing.T) {
	b := New()
	want := strings.Repeat(".", NumCells) + "/111111111/-"
	if got := Encode(b); got != want {
		t.Fatalf("Encode(New()) = %q", got)
	}
	playMoves(t, &b, 40)
	want = strings.Repeat(".", 40) + "X" + strings.Repeat(".", 40) + "/000010000/40"
	if got := b.String(); got != want {
		t.Fatalf("after 40 got %q", got)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	b := New()
	playMoves(t, &b, 1, 9, 2, 18, 0, 40)
	d, err := Decode(Encode(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !d.Equal(b) {
		t.Fatalf("expected equal boards: %v vs %v", b, d)
	}
	if d.NextPlayer() != First || d.Macro(0) != First {
		t.Fatalf("derived fields wrong: next=%v macro0=%v", d.NextPlayer(), d.Macro(0))
	}
	if last, ok := d.LastMove(); !ok || last != 40 {
		t.Fatalf("expected last move 40, got %v", last)
	}
}

func TestDecodeRejectsInvalidInput(t *testing.T) {
	empty := strings.Repeat(".", NumCells)
	center := strings.Repeat(".", 40) + "X" + strings.Repeat(".", 40)
	row := cellsText([]Coord{0, 1, 2}, []Coord{9, 18})
	cases := map[string]string{
		"no fields":         "",
		"two fields":        empty + "/111111111",
		"short cells":       empty[1:] + "/111111111/-",
		"bad cell":          "Z" + empty[1:] + "/111111111/-",
		"parity two X":      cellsText([]Coord{0, 1}, nil) + "/111111111/-",
		"parity more O":     cellsText(nil, []Coord{0}) + "/111111111/-",
		"short mask":        empty + "/11111111/-",
		"bad mask flag":     empty + "/11111111x/-",
		"empty mask":        center + "/000000000/-",
		"empty board mask":  empty + "/000010000/-",
		"decided in mask":   row + "/111111111/-",
		"last out of range": center + "/000010000/81",
		"last not a number": center + "/000010000/x",
		"last by wrong one": center + "/000010000/39",
		"mask ignores last": center + "/000001000/40",
		"both own macro":    cellsText([]Coord{0, 1, 2, 40}, []Coord{3, 4, 5}) + "/000000001/-",
	}
	for name, s := range cases {
		if _, err := Decode(s); !errors.Is(err, ErrInvalidSerializedBoard) {
			t.Fatalf("%s: expected ErrInvalidSerializedBoard, got %v", name, err)
		}
	}
}

func TestBoardTextMarshaling(t *testing.T) {
	b := New()
	playMoves(t, &b, 40, 36)
	raw, err := json.Marshal(struct{ Board Board }{b})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct{ Board Board }
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Board.Equal(b) {
		t.Fatalf("json round trip mismatch: %v vs %v", b, out.Board)
	}
	if err := json.Unmarshal([]byte(`{"Board":"nope"}`), &out); !errors.Is(err, ErrInvalidSerializedBoard) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
