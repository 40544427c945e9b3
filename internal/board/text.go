package board

import (
	"fmt"
	"strings"
)

// StartText is the text form of the start position.
const StartText = "---------------------------OX------XO--------------------------- X"

// ParseText parses a position in text form: 64 cells from a1 to h8
// ('X' black, 'O' white, '-' or '.' empty), whitespace, then the side
// to move ('X' or 'O').
func ParseText(s string) (*Position, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid position: need 2 fields, got %d", len(parts))
	}

	cells, side := parts[0], parts[1]
	if len(cells) != 64 {
		return nil, fmt.Errorf("invalid position: need 64 cells, got %d", len(cells))
	}

	var black, white Bitboard
	for i := 0; i < 64; i++ {
		switch cells[i] {
		case 'X', 'x', '*':
			black = black.Set(Square(i))
		case 'O', 'o':
			white = white.Set(Square(i))
		case '-', '.':
		default:
			return nil, fmt.Errorf("invalid cell %q at %s", cells[i], Square(i))
		}
	}

	var stm Color
	switch side {
	case "X", "x", "*", "b":
		stm = Black
	case "O", "o", "w":
		stm = White
	default:
		return nil, fmt.Errorf("invalid side to move: %s", side)
	}

	return NewPositionFromDiscs(black, white, stm), nil
}

// Text returns the position in the format accepted by ParseText.
func (p *Position) Text() string {
	var sb strings.Builder
	sb.Grow(66)
	for sq := A1; sq <= H8; sq++ {
		sb.WriteByte(p.DiscAt(sq).Char())
	}
	sb.WriteByte(' ')
	sb.WriteByte(p.Side.Char())
	return sb.String()
}

// String returns a visual representation of the position, row 1 first.
// Legal moves for the side to move are shown as '*'.
func (p *Position) String() string {
	moves := p.LegalMoves()
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for row := 0; row < 8; row++ {
		sb.WriteByte(byte('1' + row))
		sb.WriteByte(' ')
		for col := 0; col < 8; col++ {
			sq := NewSquare(col, row)
			c := p.DiscAt(sq).Char()
			if c == '-' && moves.IsSet(sq) {
				c = '*'
			}
			sb.WriteByte(c)
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	black, white := p.Score()
	fmt.Fprintf(&sb, "X: %d  O: %d  %s to move\n", black, white, p.Side)
	return sb.String()
}
