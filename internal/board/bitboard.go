package board

import (
	"math/bits"
	"strings"
)

// Bitboard represents a 64-bit board where each bit corresponds to a square.
// Bit 0 = a1, bit 7 = h1, bit 56 = a8, bit 63 = h8. Row = index / 8, column = index % 8.
type Bitboard uint64

// Column masks
const (
	FileA Bitboard = 0x0101010101010101
	FileB Bitboard = 0x0202020202020202
	FileG Bitboard = 0x4040404040404040
	FileH Bitboard = 0x8080808080808080
)

// Row masks
const (
	Row1 Bitboard = 0x00000000000000FF
	Row8 Bitboard = 0xFF00000000000000
)

// Special masks
const (
	Universe Bitboard = 0xFFFFFFFFFFFFFFFF

	NotFileA Bitboard = ^FileA
	NotFileH Bitboard = ^FileH

	Corners Bitboard = 0x8100000000000081
	Center  Bitboard = 0x0000001818000000
)

// SquareBB returns a bitboard with only the given square set.
func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

// Set sets a bit at the given square.
func (b Bitboard) Set(sq Square) Bitboard {
	return b | (1 << sq)
}

// Clear clears a bit at the given square.
func (b Bitboard) Clear(sq Square) Bitboard {
	return b &^ (1 << sq)
}

// IsSet returns true if the bit at the given square is set.
func (b Bitboard) IsSet(sq Square) bool {
	return b&(1<<sq) != 0
}

// PopCount returns the number of set bits (population count).
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(uint64(b))
}

// LSB returns the least significant bit (lowest square index).
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// PopLSB removes and returns the least significant bit.
func (b *Bitboard) PopLSB() Square {
	sq := b.LSB()
	*b &= *b - 1
	return sq
}

// direction is a single-step shift used by move generation.
// Shifts that wrap across the a/h edge are masked off.
type direction func(Bitboard) Bitboard

// North shifts the bitboard one row toward row 8.
func (b Bitboard) North() Bitboard { return b << 8 }

// South shifts the bitboard one row toward row 1.
func (b Bitboard) South() Bitboard { return b >> 8 }

// East shifts the bitboard one column toward h.
func (b Bitboard) East() Bitboard { return (b << 1) & NotFileA }

// West shifts the bitboard one column toward a.
func (b Bitboard) West() Bitboard { return (b >> 1) & NotFileH }

// NorthEast shifts the bitboard one square toward h8.
func (b Bitboard) NorthEast() Bitboard { return (b << 9) & NotFileA }

// NorthWest shifts the bitboard one square toward a8.
func (b Bitboard) NorthWest() Bitboard { return (b << 7) & NotFileH }

// SouthEast shifts the bitboard one square toward h1.
func (b Bitboard) SouthEast() Bitboard { return (b >> 7) & NotFileA }

// SouthWest shifts the bitboard one square toward a1.
func (b Bitboard) SouthWest() Bitboard { return (b >> 9) & NotFileH }

var directions = [8]direction{
	Bitboard.North, Bitboard.South, Bitboard.East, Bitboard.West,
	Bitboard.NorthEast, Bitboard.NorthWest, Bitboard.SouthEast, Bitboard.SouthWest,
}

// String returns a visual representation of the bitboard, row 1 first.
func (b Bitboard) String() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for row := 0; row < 8; row++ {
		sb.WriteByte(byte('1' + row))
		sb.WriteByte(' ')
		for col := 0; col < 8; col++ {
			if b.IsSet(NewSquare(col, row)) {
				sb.WriteString("1 ")
			} else {
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Squares returns a slice of all squares that are set, in ascending order.
func (b Bitboard) Squares() []Square {
	squares := make([]Square, 0, b.PopCount())
	for b != 0 {
		squares = append(squares, b.PopLSB())
	}
	return squares
}
