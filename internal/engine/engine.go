// Package engine searches reversi positions with iterative-deepening
// negamax over a learned evaluation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/book"
	"github.com/hailam/reversi/internal/eval"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = MaxPly)
	MoveTime time.Duration // Time for this move (0 = no limit)
}

// Result is the outcome of a search. Score is from the side to move's
// point of view.
type Result struct {
	Move  board.Move
	Score int
	Depth int
	Nodes uint64
	PV    []board.Move
	Time  time.Duration
	Book  bool // Move came from the opening book; Score is 0
}

// Engine is the reversi AI engine. Searches are serialized.
type Engine struct {
	mu       sync.Mutex
	searcher *Searcher
	tt       *TranspositionTable
	book     *book.Book

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine over ev with the given transposition table size in MB.
func NewEngine(ev Evaluator, ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	return &Engine{
		searcher: NewSearcher(ev, tt),
		tt:       tt,
	}
}

// SetBook sets the opening book consulted before searching. nil disables it.
func (e *Engine) SetBook(b *book.Book) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book = b
}

// SearchWithLimits finds the best move with specific search limits.
//
// A book move is returned without searching. Otherwise the result of the
// deepest completed iteration is returned; if the search is stopped
// before depth 1 completes, the first legal move is returned with Depth 0.
// Evaluation errors and context cancellation abort the search and are
// returned. A Stop issued before the call is honoured; callers that reuse
// the engine after a Stop call ClearStop first.
func (e *Engine) SearchWithLimits(ctx context.Context, pos *board.Position, limits SearchLimits) (Result, error) {
	if err := pos.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", eval.ErrInvalidBoardState, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.searcher.Reset()
	e.tt.NewSearch()

	startTime := time.Now()
	res := Result{Move: board.NoMove}

	moves := pos.GenerateMoves()
	if len(moves) == 0 {
		// Game over: report the exact score.
		score, err := e.searcher.eval.Evaluate(ctx, pos)
		if err != nil {
			return res, err
		}
		res.Score = score.Score
		if pos.SideToMove() == board.White {
			res.Score = -res.Score
		}
		return res, nil
	}
	res.Move = moves[0]

	if m, ok := e.book.Probe(pos); ok {
		res.Move = m
		res.PV = []board.Move{m}
		res.Book = true
		res.Time = time.Since(startTime)
		return res, nil
	}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	// Iterative deepening
	for depth := 1; depth <= maxDepth; depth++ {
		move, score, err := e.searcher.Search(ctx, pos, depth, deadline)
		if errors.Is(err, errStopped) {
			break
		}
		if err != nil {
			return res, err
		}

		if move != board.NoMove {
			res.Move = move
			res.Score = score
			res.Depth = depth
			res.PV = e.searcher.GetPV()
		}

		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    score,
				Nodes:    e.searcher.Nodes(),
				Time:     time.Since(startTime),
				PV:       res.PV,
				HashFull: e.tt.HashFull(),
			})
		}

		// The game tree below is fully resolved.
		if score > eval.Infinity-64 || score < -eval.Infinity+64 {
			break
		}

		// If we've used more than half the time, don't start another iteration
		if !deadline.IsZero() {
			elapsed := time.Since(startTime)
			if limits.MoveTime-elapsed < elapsed {
				break
			}
		}
	}

	res.Nodes = e.searcher.Nodes()
	res.Time = time.Since(startTime)
	return res, nil
}

// Stop stops the current search, or the next one if none is running.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// ClearStop withdraws a Stop. Call it before starting a search that a
// later Stop should interrupt.
func (e *Engine) ClearStop() {
	e.searcher.ClearStop()
}

// Clear clears the transposition table and move ordering state.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear()
	e.searcher.orderer = NewMoveOrderer()
}

// Perft counts leaf nodes of the move tree to depth (for debugging move
// generation). Passes count as moves; finished games are leaves.
func Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateMoves()
	if depth == 1 {
		return uint64(len(moves))
	}

	var nodes uint64
	for _, m := range moves {
		undo := pos.MakeMove(m)
		nodes += Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}

// ScoreToString converts a side-to-move score to a human-readable string.
// Proven results show the loser's final disc count.
func ScoreToString(score int) string {
	switch {
	case score > eval.Infinity-64:
		return fmt.Sprintf("win (opponent %d)", eval.Infinity-score)
	case score < -eval.Infinity+64:
		return fmt.Sprintf("loss (own %d)", eval.Infinity+score)
	case score == 0:
		return "0"
	}
	return fmt.Sprintf("%+d", score)
}
