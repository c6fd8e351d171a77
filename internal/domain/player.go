package domain

import "fmt"

// Player identifies the owner of a cell, a macro or the whole game.
type Player uint8

const (
	Neutral Player = iota
	First
	Second
)

// Other returns the opponent. It panics for Neutral.
func (p Player) Other() Player {
	switch p {
	case First:
		return Second
	case Second:
		return First
	default:
		panic(fmt.Sprintf("domain: no opponent for player %v", p))
	}
}

// OtherWithNeutral is Other but maps Neutral to itself.
func (p Player) OtherWithNeutral() Player {
	if p == Neutral {
		return Neutral
	}
	return p.Other()
}

// Sign is +1 for First, -1 for Second and 0 for Neutral.
func (p Player) Sign() int {
	switch p {
	case First:
		return 1
	case Second:
		return -1
	default:
		return 0
	}
}

// Mark is the single character used for p in the compact board text.
func (p Player) Mark() byte {
	switch p {
	case First:
		return 'X'
	case Second:
		return 'O'
	default:
		return '.'
	}
}

func (p Player) String() string {
	switch p {
	case First:
		return "X"
	case Second:
		return "O"
	default:
		return ""
	}
}

func (p Player) index() int { return int(p) - 1 }

func playerFromMark(c byte) (Player, bool) {
	switch c {
	case 'X':
		return First, true
	case 'O':
		return Second, true
	case '.':
		return Neutral, true
	default:
		return Neutral, false
	}
}
