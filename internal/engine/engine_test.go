package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/book"
	"github.com/hailam/reversi/internal/eval"
)

// discEval scores disc difference for Black and exact results for finished games.
type discEval struct {
	calls int
	err   error
}

func (d *discEval) Evaluate(_ context.Context, pos *board.Position) (eval.Result, error) {
	d.calls++
	if d.err != nil {
		return eval.Result{}, d.err
	}
	black, white := pos.Score()
	if pos.IsGameOver() {
		return eval.Result{Score: eval.TerminalScore(black, white), Terminal: true}, nil
	}
	// Mobility keeps the evaluation from being trivially symmetric.
	mob := pos.LegalMoves().PopCount()
	if pos.SideToMove() == board.White {
		mob = -mob
	}
	return eval.Result{Score: 10*(black-white) + mob}, nil
}

// minimax is a plain negamax reference without pruning.
func minimax(t *testing.T, ev Evaluator, pos *board.Position, depth int) int {
	moves := pos.GenerateMoves()
	if depth == 0 || len(moves) == 0 {
		res, err := ev.Evaluate(context.Background(), pos)
		if err != nil {
			t.Fatal(err)
		}
		if pos.SideToMove() == board.White {
			return -res.Score
		}
		return res.Score
	}
	best := -Infinity
	for _, m := range moves {
		undo := pos.MakeMove(m)
		if s := -minimax(t, ev, pos, depth-1); s > best {
			best = s
		}
		pos.UnmakeMove(m, undo)
	}
	return best
}

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(&discEval{}, 16)

	var depths []int
	eng.OnInfo = func(info SearchInfo) { depths = append(depths, info.Depth) }

	res, err := eng.SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 4})
	if err != nil {
		t.Fatal(err)
	}
	if !pos.IsLegal(res.Move) {
		t.Errorf("Search returned illegal move %s", res.Move)
	}
	if res.Depth != 4 || len(depths) != 4 {
		t.Errorf("completed depth %d, reported %v", res.Depth, depths)
	}
	if len(res.PV) == 0 || res.PV[0] != res.Move {
		t.Errorf("PV %v does not start with %s", res.PV, res.Move)
	}
	if pos.Text() != board.StartText {
		t.Error("search modified the input position")
	}
	t.Logf("Best move: %s (%s)", res.Move, ScoreToString(res.Score))
}

func TestSearchMatchesMinimax(t *testing.T) {
	positions := []string{
		board.StartText,
		"---------------------------OX------XXX-------------------------- O",
		"--------------------O------OOX-----XXX------X------------------- X",
	}
	for _, text := range positions {
		pos, err := board.ParseText(text)
		if err != nil {
			t.Fatal(err)
		}
		ev := &discEval{}
		for depth := 1; depth <= 4; depth++ {
			want := minimax(t, ev, pos.Copy(), depth)

			eng := NewEngine(ev, 1)
			res, err := eng.SearchWithLimits(context.Background(), pos, SearchLimits{Depth: depth})
			if err != nil {
				t.Fatal(err)
			}
			if res.Score != want {
				t.Errorf("%s depth %d: score %d, want %d", text, depth, res.Score, want)
			}
		}
	}
}

func TestSearchForcedPass(t *testing.T) {
	pos := board.NewPositionFromDiscs(board.SquareBB(board.A1), board.SquareBB(board.NewSquare(1, 0)), board.White)
	eng := NewEngine(&discEval{}, 1)

	res, err := eng.SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Move != board.PassMove {
		t.Errorf("Move = %s, want pass", res.Move)
	}
}

func TestSearchFindsWipeout(t *testing.T) {
	// Black plays c1 and flips the only white disc.
	pos := board.NewPositionFromDiscs(board.SquareBB(board.A1), board.SquareBB(board.NewSquare(1, 0)), board.Black)
	eng := NewEngine(&discEval{}, 1)

	res, err := eng.SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Move != board.NewMove(board.NewSquare(2, 0)) || res.Score != eval.Infinity {
		t.Errorf("got %s %d, want c1 %d", res.Move, res.Score, eval.Infinity)
	}
	if res.Depth != 1 {
		t.Errorf("proven result should end the search at depth 1, got %d", res.Depth)
	}
}

func TestSearchGameOver(t *testing.T) {
	pos := board.NewPositionFromDiscs(0, board.Universe, board.Black)
	res, err := NewEngine(&discEval{}, 1).SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Move != board.NoMove || res.Score != -eval.Infinity {
		t.Errorf("got %s %d, want none %d", res.Move, res.Score, -eval.Infinity)
	}
}

func TestSearchEvaluationErrorAborts(t *testing.T) {
	ev := &discEval{err: eval.ErrNumericFault}
	_, err := NewEngine(ev, 1).SearchWithLimits(context.Background(), board.NewPosition(), SearchLimits{Depth: 3})
	if !errors.Is(err, eval.ErrNumericFault) {
		t.Errorf("got %v, want ErrNumericFault", err)
	}
	if ev.calls != 1 {
		t.Errorf("evaluator called %d times after failure", ev.calls)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(&discEval{}, 1).SearchWithLimits(ctx, board.NewPosition(), SearchLimits{Depth: 3})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSearchDeadline(t *testing.T) {
	pos := board.NewPosition()
	res, err := NewEngine(&discEval{}, 1).SearchWithLimits(context.Background(), pos, SearchLimits{MoveTime: time.Nanosecond})
	if err != nil {
		t.Fatal(err)
	}
	if !pos.IsLegal(res.Move) {
		t.Errorf("expired search should still return a legal move, got %s", res.Move)
	}
}

func TestStopBeforeSearch(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(&discEval{}, 1)

	eng.Stop()
	res, err := eng.SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 8})
	if err != nil {
		t.Fatal(err)
	}
	if res.Depth != 0 || !pos.IsLegal(res.Move) {
		t.Errorf("got %+v, want a legal move at depth 0", res)
	}

	eng.ClearStop()
	res, err = eng.SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Depth != 3 {
		t.Errorf("Depth = %d after ClearStop, want 3", res.Depth)
	}
}

func TestSearchInvalidPosition(t *testing.T) {
	pos := board.NewPositionFromDiscs(1, 1, board.Black)
	_, err := NewEngine(&discEval{}, 1).SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 1})
	if !errors.Is(err, eval.ErrInvalidBoardState) {
		t.Errorf("got %v, want ErrInvalidBoardState", err)
	}
}

func TestSearchUsesBook(t *testing.T) {
	pos := board.NewPosition()
	d3, _ := board.ParseMove("d3")
	b := book.New()
	if err := b.Add(pos, d3, 1); err != nil {
		t.Fatal(err)
	}

	ev := &discEval{}
	eng := NewEngine(ev, 1)
	eng.SetBook(b)

	res, err := eng.SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Book || res.Move != d3 || ev.calls != 0 {
		t.Errorf("got %+v after %d evaluations, want book move d3", res, ev.calls)
	}

	// Out of book the engine searches.
	pos.MakeMove(d3)
	res, err = eng.SearchWithLimits(context.Background(), pos, SearchLimits{Depth: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Book || res.Depth != 2 {
		t.Errorf("got %+v, want a depth 2 search", res)
	}
}

func TestPerft(t *testing.T) {
	want := []uint64{1, 4, 12, 56, 244}
	for depth, n := range want {
		if got := Perft(board.NewPosition(), depth); got != n {
			t.Errorf("Perft(%d) = %d, want %d", depth, got, n)
		}
	}
}

func TestTranspositionTable(t *testing.T) {
	tt := NewTranspositionTable(1)
	if tt.Size() != 65536 {
		t.Errorf("Size = %d, want 65536", tt.Size())
	}

	const hash = 0x123456789
	if _, found := tt.Probe(hash); found {
		t.Error("Expected miss on empty table")
	}

	m := board.NewMove(board.D4)
	tt.Store(hash, 5, -120, TTLowerBound, m)
	e, found := tt.Probe(hash)
	if !found || e.Score != -120 || e.Depth != 5 || e.Flag != TTLowerBound || e.BestMove != m {
		t.Errorf("Probe = %+v, %v", e, found)
	}

	// Shallower results from the same search do not replace.
	tt.Store(hash, 3, 40, TTExact, m)
	if e, _ := tt.Probe(hash); e.Depth != 5 {
		t.Errorf("depth 3 replaced depth 5 entry")
	}

	// A new search ages the entry out.
	tt.NewSearch()
	tt.Store(hash, 2, 40, TTExact, m)
	if e, _ := tt.Probe(hash); e.Depth != 2 {
		t.Errorf("old entry was not replaced")
	}

	if tt.HitRate() == 0 {
		t.Error("HitRate should be positive")
	}
	tt.Clear()
	if _, found := tt.Probe(hash); found {
		t.Error("Clear left entries behind")
	}
}

func TestScoreToString(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "0"},
		{94, "+94"},
		{-30, "-30"},
		{eval.Infinity - 12, "win (opponent 12)"},
		{-eval.Infinity + 20, "loss (own 20)"},
	}
	for _, tc := range tests {
		if got := ScoreToString(tc.score); got != tc.want {
			t.Errorf("ScoreToString(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
