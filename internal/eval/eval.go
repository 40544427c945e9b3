// Package eval turns reversi positions into engine scores: exact values for
// finished games, otherwise the scoring network's output mapped through an
// inverse-tanh-squared transform.
package eval

import (
	"errors"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/nn"
)

// Infinity is the terminal score magnitude. Terminal wins and losses are
// offset from it by at most 64 discs, which keeps them beyond any heuristic
// value (|heuristic| <= HeuristicBound).
const Infinity = 30000

// HeuristicBound is the largest magnitude a non-terminal evaluation can take.
const HeuristicBound = 6400

var (
	// ErrInvalidBoardState is returned for overlapping occupancy or an invalid side to move.
	ErrInvalidBoardState = errors.New("invalid board state")

	// ErrNumericFault is returned when the scorer produces NaN, Inf or a value outside [0, 1].
	ErrNumericFault = errors.New("numeric fault in scoring function output")

	// ErrModelUnavailable is returned when the scorer was never loaded or has been closed.
	ErrModelUnavailable = nn.ErrModelUnavailable
)

// Position is the read-only view of a board the evaluator needs.
// Black is side A: larger scores are better for Black.
type Position interface {
	Occupancy(c board.Color) board.Bitboard
	SideToMove() board.Color
	IsGameOver() bool
	Score() (black, white int)
}

// Scorer is the learned scoring function. Predict takes a batch of encoded
// positions and returns one value in (0, 1) per position. Implementations
// must be safe for concurrent use.
type Scorer interface {
	Predict(batch []nn.Input) ([]float64, error)
}

// ScorerFunc adapts a single-input function to Scorer.
type ScorerFunc func(in nn.Input) (float64, error)

// Predict calls f for each input.
func (f ScorerFunc) Predict(batch []nn.Input) ([]float64, error) {
	out := make([]float64, len(batch))
	for i := range batch {
		y, err := f(batch[i])
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}
