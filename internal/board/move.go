package board

import (
	"fmt"
	"strings"
)

// Move is a disc placement (the target square) or a pass.
type Move uint8

const (
	PassMove Move = 64
	NoMove   Move = 65
)

// NewMove creates a placement move on sq.
func NewMove(sq Square) Move {
	return Move(sq)
}

// Square returns the target square, or NoSquare for a pass.
func (m Move) Square() Square {
	if m >= PassMove {
		return NoSquare
	}
	return Square(m)
}

// String returns the move in coordinate notation, "pass" or "none".
func (m Move) String() string {
	switch m {
	case PassMove:
		return "pass"
	case NoMove:
		return "none"
	default:
		return Square(m).String()
	}
}

// ParseMove parses "f5" style coordinates or "pass"/"ps".
func ParseMove(s string) (Move, error) {
	switch strings.ToLower(s) {
	case "pass", "ps", "--":
		return PassMove, nil
	}
	sq, err := ParseSquare(s)
	if err != nil {
		return NoMove, fmt.Errorf("invalid move %q: %w", s, err)
	}
	return NewMove(sq), nil
}
