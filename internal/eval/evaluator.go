package eval

import (
	"fmt"
	"math"

	"github.com/hailam/reversi/internal/nn"
)

// Result is a detailed evaluation.
type Result struct {
	Score    int
	Terminal bool
	Raw      float64 // Scorer output, 0 for terminal positions
}

// Evaluator scores positions with an injected Scorer. It holds no mutable
// state and can be shared between goroutines.
type Evaluator struct {
	scorer Scorer
}

// New creates an evaluator backed by scorer.
func New(scorer Scorer) (*Evaluator, error) {
	if scorer == nil {
		return nil, ErrModelUnavailable
	}
	return &Evaluator{scorer: scorer}, nil
}

// TerminalScore returns the exact score of a finished game:
// Infinity − white if Black has more discs, −Infinity + black if White
// has more, and 0 for a draw.
func TerminalScore(black, white int) int {
	switch {
	case black > white:
		return Infinity - white
	case black < white:
		return -Infinity + black
	default:
		return 0
	}
}

// Evaluate returns the score of pos from Black's point of view.
func (e *Evaluator) Evaluate(pos Position) (int, error) {
	res, err := e.EvaluateDetail(pos)
	return res.Score, err
}

// EvaluateDetail is Evaluate with the raw scorer output.
func (e *Evaluator) EvaluateDetail(pos Position) (Result, error) {
	if pos.IsGameOver() {
		return Result{Score: TerminalScore(pos.Score()), Terminal: true}, nil
	}

	in, err := Encode(pos)
	if err != nil {
		return Result{}, err
	}

	out, err := e.scorer.Predict([]nn.Input{in})
	if err != nil {
		return Result{}, err
	}
	if len(out) != 1 {
		return Result{}, fmt.Errorf("%w: expected 1 output, got %d", ErrNumericFault, len(out))
	}

	y := out[0]
	if err := checkRaw(y); err != nil {
		return Result{}, err
	}
	return Result{Score: HeuristicScore(y), Raw: y}, nil
}

// checkRaw rejects outputs the transform must not silently clip.
// Exactly 0 and 1 are accepted; the clip bounds handle them.
func checkRaw(y float64) error {
	if math.IsNaN(y) || math.IsInf(y, 0) || y < 0 || y > 1 {
		return fmt.Errorf("%w: %v", ErrNumericFault, y)
	}
	return nil
}
