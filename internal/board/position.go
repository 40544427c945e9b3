package board

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is returned by Play when the move is not legal in the position.
var ErrIllegalMove = errors.New("illegal move")

// Position represents a complete reversi position.
type Position struct {
	// Disc bitboards indexed by Color
	Discs [2]Bitboard

	// Side to move
	Side Color

	// Zobrist hash for transposition table and evaluation cache
	Hash uint64
}

// UndoInfo holds what MakeMove changed so UnmakeMove can restore it.
type UndoInfo struct {
	Flipped Bitboard
	Hash    uint64
}

// NewPosition returns the standard start position, Black to move.
func NewPosition() *Position {
	p := &Position{Side: Black}
	p.Discs[Black] = SquareBB(E4) | SquareBB(D5)
	p.Discs[White] = SquareBB(D4) | SquareBB(E5)
	p.Hash = p.ComputeHash()
	return p
}

// NewPositionFromDiscs builds a position from raw occupancy sets.
// It does not validate that the sets are disjoint.
func NewPositionFromDiscs(black, white Bitboard, side Color) *Position {
	p := &Position{Side: side}
	p.Discs[Black] = black
	p.Discs[White] = white
	p.Hash = p.ComputeHash()
	return p
}

// Copy returns a copy of the position.
func (p *Position) Copy() *Position {
	cp := *p
	return &cp
}

// Occupancy returns the discs of color c.
func (p *Position) Occupancy(c Color) Bitboard {
	return p.Discs[c]
}

// SideToMove returns the color to move.
func (p *Position) SideToMove() Color {
	return p.Side
}

// Occupied returns all discs on the board.
func (p *Position) Occupied() Bitboard {
	return p.Discs[Black] | p.Discs[White]
}

// EmptySquares returns all empty squares.
func (p *Position) EmptySquares() Bitboard {
	return ^p.Occupied()
}

// DiscAt returns the color of the disc on sq, or NoColor.
func (p *Position) DiscAt(sq Square) Color {
	switch {
	case p.Discs[Black].IsSet(sq):
		return Black
	case p.Discs[White].IsSet(sq):
		return White
	default:
		return NoColor
	}
}

// Score returns the disc counts (black, white).
func (p *Position) Score() (int, int) {
	return p.Discs[Black].PopCount(), p.Discs[White].PopCount()
}

// legalMoves returns the squares where own can play against opp.
func legalMoves(own, opp Bitboard) Bitboard {
	empty := ^(own | opp)
	var moves Bitboard
	for _, shift := range directions {
		x := shift(own) & opp
		for i := 0; i < 5; i++ {
			x |= shift(x) & opp
		}
		moves |= shift(x) & empty
	}
	return moves
}

// flips returns the discs turned over when own plays on sq.
func flips(own, opp Bitboard, sq Square) Bitboard {
	var flipped Bitboard
	for _, shift := range directions {
		var line Bitboard
		x := shift(SquareBB(sq))
		for x&opp != 0 {
			line |= x
			x = shift(x)
		}
		if x&own != 0 {
			flipped |= line
		}
	}
	return flipped
}

// LegalMoves returns the bitboard of legal squares for the side to move.
func (p *Position) LegalMoves() Bitboard {
	return legalMoves(p.Discs[p.Side], p.Discs[p.Side.Other()])
}

// GenerateMoves returns the legal moves for the side to move.
// When no square is playable but the game is not over the only move is PassMove.
func (p *Position) GenerateMoves() []Move {
	moves := p.LegalMoves()
	if moves == 0 {
		if p.opponentHasMoves() {
			return []Move{PassMove}
		}
		return nil
	}
	list := make([]Move, 0, moves.PopCount())
	for moves != 0 {
		list = append(list, Move(moves.PopLSB()))
	}
	return list
}

// HasMoves returns true if the side to move can place a disc.
func (p *Position) HasMoves() bool {
	return p.LegalMoves() != 0
}

func (p *Position) opponentHasMoves() bool {
	return legalMoves(p.Discs[p.Side.Other()], p.Discs[p.Side]) != 0
}

// IsGameOver returns true if neither side can place a disc.
func (p *Position) IsGameOver() bool {
	return !p.HasMoves() && !p.opponentHasMoves()
}

// Flips returns the discs that would be turned over by playing sq.
func (p *Position) Flips(sq Square) Bitboard {
	return flips(p.Discs[p.Side], p.Discs[p.Side.Other()], sq)
}

// MakeMove plays m for the side to move. The move must be legal.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{Hash: p.Hash}
	us, them := p.Side, p.Side.Other()

	if m != PassMove {
		sq := m.Square()
		flipped := p.Flips(sq)
		undo.Flipped = flipped

		p.Discs[us] |= flipped | SquareBB(sq)
		p.Discs[them] &^= flipped

		p.Hash ^= zobristDisc[us][sq]
		for flipped != 0 {
			f := flipped.PopLSB()
			p.Hash ^= zobristDisc[us][f] ^ zobristDisc[them][f]
		}
	}

	p.Side = them
	p.Hash ^= zobristSideToMove
	return undo
}

// UnmakeMove restores the position to before m was played.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	p.Side = p.Side.Other()
	us, them := p.Side, p.Side.Other()

	if m != PassMove {
		p.Discs[us] &^= undo.Flipped | SquareBB(m.Square())
		p.Discs[them] |= undo.Flipped
	}
	p.Hash = undo.Hash
}

// IsLegal reports whether m can be played in the position.
func (p *Position) IsLegal(m Move) bool {
	if m == PassMove {
		return !p.HasMoves() && p.opponentHasMoves()
	}
	if !m.Square().IsValid() {
		return false
	}
	return p.LegalMoves().IsSet(m.Square())
}

// Play validates and plays m.
func (p *Position) Play(m Move) error {
	if !p.IsLegal(m) {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	p.MakeMove(m)
	return nil
}

// Validate checks the structural invariants of the position.
func (p *Position) Validate() error {
	if p.Discs[Black]&p.Discs[White] != 0 {
		return fmt.Errorf("overlapping discs on %v", (p.Discs[Black] & p.Discs[White]).Squares())
	}
	if !p.Side.IsValid() {
		return fmt.Errorf("invalid side to move: %d", p.Side)
	}
	return nil
}
