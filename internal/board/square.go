// Package board implements the reversi rules engine using bitboards.
package board

import "fmt"

// Square represents a cell on the board (0-63).
// a1=0, h1=7, a8=56, h8=63; the digit is the row, the letter the column.
type Square uint8

// Named squares used by the start position and corner masks.
const (
	A1 Square = 0
	H1 Square = 7
	D4 Square = 27
	E4 Square = 28
	D5 Square = 35
	E5 Square = 36
	A8 Square = 56
	H8 Square = 63

	NoSquare Square = 64
)

// Col returns the column of the square (0-7, where 0=a, 7=h).
func (sq Square) Col() int {
	return int(sq) & 7
}

// Row returns the row of the square (0-7, where 0=1, 7=8).
func (sq Square) Row() int {
	return int(sq) >> 3
}

// String returns the square in coordinate notation (e.g., "f5").
func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.Col(), '1'+sq.Row())
}

// NewSquare creates a square from column and row (0-indexed).
func NewSquare(col, row int) Square {
	return Square(row*8 + col)
}

// ParseSquare parses coordinate notation (e.g., "f5") into a Square.
// Upper-case columns are accepted.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	c := s[0]
	if c >= 'A' && c <= 'H' {
		c += 'a' - 'A'
	}
	col := int(c) - 'a'
	row := int(s[1]) - '1'

	if col < 0 || col > 7 || row < 0 || row > 7 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	return NewSquare(col, row), nil
}

// IsValid returns true if the square is a valid board square (0-63).
func (sq Square) IsValid() bool {
	return sq < NoSquare
}

// Color is one of the two sides. Black moves first and is "side A" for evaluation.
type Color uint8

const (
	Black Color = iota
	White
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// IsValid reports whether c is Black or White.
func (c Color) IsValid() bool {
	return c == Black || c == White
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case Black:
		return "Black"
	case White:
		return "White"
	default:
		return "NoColor"
	}
}

// Char returns the disc character used by the text format.
func (c Color) Char() byte {
	switch c {
	case Black:
		return 'X'
	case White:
		return 'O'
	default:
		return '-'
	}
}
