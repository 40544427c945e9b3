package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/nn"
)

func constScorer(y float64) Scorer {
	return ScorerFunc(func(nn.Input) (float64, error) { return y, nil })
}

func mustNew(t *testing.T, s Scorer) *Evaluator {
	t.Helper()
	e, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// discs returns a bitboard with the first n squares starting at from.
func discs(from, n int) board.Bitboard {
	var b board.Bitboard
	for i := from; i < from+n; i++ {
		b = b.Set(board.Square(i))
	}
	return b
}

func TestTerminalScores(t *testing.T) {
	// The scorer must not be called for finished games.
	e := mustNew(t, ScorerFunc(func(nn.Input) (float64, error) {
		t.Error("scorer called for terminal position")
		return 0.5, nil
	}))

	tests := []struct {
		name         string
		black, white int
		want         int
	}{
		{"black wins", 40, 24, Infinity - 24},
		{"black wipeout", 13, 0, Infinity},
		{"white wins", 20, 44, -Infinity + 20},
		{"white wipeout", 0, 9, -Infinity},
		{"draw", 32, 32, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := fakePosition{black: discs(0, tc.black), white: discs(tc.black, tc.white), over: true}
			got, err := e.Evaluate(pos)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("Evaluate = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTerminalDominatesHeuristic(t *testing.T) {
	worstWin := TerminalScore(33, 31)
	bestLoss := TerminalScore(31, 33)
	top := HeuristicScore(1)
	bottom := -top

	if worstWin <= top {
		t.Errorf("narrowest win %d does not beat best heuristic %d", worstWin, top)
	}
	if bestLoss >= bottom {
		t.Errorf("narrowest loss %d does not trail worst heuristic %d", bestLoss, bottom)
	}
	if got := TerminalScore(63, 1); got <= worstWin {
		t.Errorf("bigger win %d should outrank narrow win %d", got, worstWin)
	}
}

func TestHeuristicPathStub(t *testing.T) {
	var seen nn.Input
	e := mustNew(t, ScorerFunc(func(in nn.Input) (float64, error) {
		seen = in
		return 0.5, nil
	}))

	res, err := e.EvaluateDetail(fakePosition{side: board.Black})
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 30 || res.Terminal || res.Raw != 0.5 {
		t.Errorf("EvaluateDetail = %+v, want score 30 raw 0.5", res)
	}
	if seen.Board != ([nn.BoardSize][nn.BoardSize][nn.Planes]float32{}) {
		t.Error("empty board should reach the scorer as all zeros")
	}
}

func TestNumericFaults(t *testing.T) {
	for _, y := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.01, 1.01} {
		e := mustNew(t, constScorer(y))
		if _, err := e.Evaluate(board.NewPosition()); !errors.Is(err, ErrNumericFault) {
			t.Errorf("scorer output %v: got %v, want ErrNumericFault", y, err)
		}
	}

	e := mustNew(t, ScorerFunc(func(nn.Input) (float64, error) { return 0, nil }))
	if got, err := e.Evaluate(board.NewPosition()); err != nil || got != 0 {
		t.Errorf("output 0: got %d, %v; want 0", got, err)
	}
	e = mustNew(t, constScorer(1))
	if got, err := e.Evaluate(board.NewPosition()); err != nil || got != HeuristicBound {
		t.Errorf("output 1: got %d, %v; want %d", got, err, HeuristicBound)
	}
}

type batchScorer struct{ out []float64 }

func (s batchScorer) Predict([]nn.Input) ([]float64, error) { return s.out, nil }

func TestWrongOutputCount(t *testing.T) {
	e := mustNew(t, batchScorer{out: []float64{0.5, 0.5}})
	if _, err := e.Evaluate(board.NewPosition()); !errors.Is(err, ErrNumericFault) {
		t.Errorf("got %v, want ErrNumericFault", err)
	}
}

func TestErrorsPropagate(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("New(nil): got %v, want ErrModelUnavailable", err)
	}

	net, err := nn.NewNetwork(nn.DefaultTopology(), nn.DefaultActivations())
	if err != nil {
		t.Fatal(err)
	}
	net.Close()
	e := mustNew(t, net)
	if _, err := e.Evaluate(board.NewPosition()); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("closed model: got %v, want ErrModelUnavailable", err)
	}

	e = mustNew(t, constScorer(0.5))
	bad := fakePosition{black: 0x1, white: 0x1, side: board.Black}
	if _, err := e.Evaluate(bad); !errors.Is(err, ErrInvalidBoardState) {
		t.Errorf("overlapping board: got %v, want ErrInvalidBoardState", err)
	}
}

func TestEvaluateWithNetwork(t *testing.T) {
	net, err := nn.NewNetwork(nn.DefaultTopology(), nn.DefaultActivations())
	if err != nil {
		t.Fatal(err)
	}
	net.InitRandom(42)
	e := mustNew(t, net)

	got, err := e.Evaluate(board.NewPosition())
	if err != nil {
		t.Fatal(err)
	}
	if got < 0 || got > HeuristicBound {
		t.Errorf("Evaluate = %d, want within [0, %d]", got, HeuristicBound)
	}
}
