package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/nn"
)

func TestEvaluateAllKeepsOrder(t *testing.T) {
	// Score depends on the number of black discs so the order is observable.
	e := mustNew(t, ScorerFunc(func(in nn.Input) (float64, error) {
		n := 0
		for r := range in.Board {
			for c := range in.Board[r] {
				n += int(in.Board[r][c][0])
			}
		}
		return float64(n) / 100, nil
	}))

	positions := make([]Position, 20)
	want := make([]int, 20)
	for i := range positions {
		positions[i] = fakePosition{black: discs(0, i+1), side: board.Black}
		want[i] = HeuristicScore(float64(i+1) / 100)
	}

	results, err := e.EvaluateAll(context.Background(), positions, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.Score != want[i] {
			t.Errorf("result %d = %d, want %d", i, r.Score, want[i])
		}
	}
}

func TestEvaluateAllStopsOnError(t *testing.T) {
	e := mustNew(t, constScorer(0.5))
	positions := []Position{
		fakePosition{side: board.Black},
		fakePosition{black: 1, white: 1, side: board.Black},
		fakePosition{side: board.White},
	}

	if _, err := e.EvaluateAll(context.Background(), positions, 0); !errors.Is(err, ErrInvalidBoardState) {
		t.Errorf("got %v, want ErrInvalidBoardState", err)
	}
}

func TestEvaluateAllCancelled(t *testing.T) {
	e := mustNew(t, constScorer(0.5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EvaluateAll(ctx, []Position{fakePosition{side: board.Black}}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
