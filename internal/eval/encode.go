package eval

import (
	"fmt"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/nn"
)

// Encode converts a position into the network input.
//
// Cell i (bit i of the occupancy sets) is written to Board[i/8][i%8] as
// (black, white); both colors are read in the same cell order so the pairs
// line up. Side is (1, 0) with Black to move and (0, 1) with White to move.
//
// Precondition: the occupancy sets are disjoint and the side to move is
// Black or White; otherwise ErrInvalidBoardState is returned.
func Encode(pos Position) (nn.Input, error) {
	var in nn.Input

	black := pos.Occupancy(board.Black)
	white := pos.Occupancy(board.White)
	if overlap := black & white; overlap != 0 {
		return in, fmt.Errorf("%w: overlapping discs on %v", ErrInvalidBoardState, overlap.Squares())
	}

	for sq := board.A1; sq <= board.H8; sq++ {
		cell := &in.Board[sq.Row()][sq.Col()]
		if black.IsSet(sq) {
			cell[0] = 1
		}
		if white.IsSet(sq) {
			cell[1] = 1
		}
	}

	switch side := pos.SideToMove(); side {
	case board.Black:
		in.Side = [nn.SideInputs]float32{1, 0}
	case board.White:
		in.Side = [nn.SideInputs]float32{0, 1}
	default:
		return in, fmt.Errorf("%w: side to move %d", ErrInvalidBoardState, side)
	}

	return in, nil
}
