package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hailam/reversi/internal/board"
	"github.com/hailam/reversi/internal/eval"
)

// Search constants. Infinity lies beyond every terminal score so that
// the root window never cuts off a real result.
const (
	Infinity = eval.Infinity + 1000
	MaxPly   = 128
)

// errStopped marks an iteration abandoned because of Stop, a deadline or
// context cancellation.
var errStopped = errors.New("search stopped")

// Evaluator scores a position from Black's point of view.
// *eval.Cached satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, pos *board.Position) (eval.Result, error)
}

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Searcher performs the alpha-beta search.
type Searcher struct {
	eval     Evaluator
	tt       *TranspositionTable
	orderer  *MoveOrderer
	stopFlag atomic.Bool

	pos       *board.Position
	ctx       context.Context
	deadline  time.Time
	nodes     uint64
	pv        PVTable
	undoStack [MaxPly]board.UndoInfo
	err       error
}

// NewSearcher creates a new searcher.
func NewSearcher(ev Evaluator, tt *TranspositionTable) *Searcher {
	return &Searcher{
		eval:    ev,
		tt:      tt,
		orderer: NewMoveOrderer(),
	}
}

// Stop signals the search to stop.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// ClearStop withdraws an earlier Stop.
func (s *Searcher) ClearStop() {
	s.stopFlag.Store(false)
}

// Reset resets the searcher for a new search. A pending Stop is kept.
func (s *Searcher) Reset() {
	s.nodes = 0
	s.err = nil
	s.orderer.Clear()
}

// Nodes returns the number of nodes searched.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// IsStopped returns true if the search has been stopped.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// Search performs a full-window search of pos to depth. It returns the
// best move and its score from the side to move's point of view.
func (s *Searcher) Search(ctx context.Context, pos *board.Position, depth int, deadline time.Time) (board.Move, int, error) {
	return s.SearchWithBounds(ctx, pos, depth, -Infinity, Infinity, deadline)
}

// SearchWithBounds performs search with custom alpha/beta bounds.
// A stopped search returns errStopped; an evaluation failure is returned
// as is and aborts the search.
func (s *Searcher) SearchWithBounds(ctx context.Context, pos *board.Position, depth, alpha, beta int, deadline time.Time) (board.Move, int, error) {
	s.pos = pos.Copy()
	s.ctx = ctx
	s.deadline = deadline
	s.err = nil

	score := s.negamax(depth, 0, alpha, beta)
	if s.err != nil {
		return board.NoMove, 0, s.err
	}

	bestMove := board.NoMove
	if s.pv.length[0] > 0 {
		bestMove = s.pv.moves[0][0]
	}
	return bestMove, score, nil
}

// GetPV returns the principal variation from the last search.
func (s *Searcher) GetPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	copy(pv, s.pv.moves[0][:s.pv.length[0]])
	return pv
}

// checkStop polls the stop flag, the deadline and the context.
func (s *Searcher) checkStop() bool {
	if s.err != nil {
		return true
	}
	if s.stopFlag.Load() {
		s.err = errStopped
		return true
	}
	if s.nodes&63 != 0 {
		return false
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.err = errStopped
		return true
	}
	if s.ctx != nil && s.ctx.Err() != nil {
		s.err = s.ctx.Err()
		return true
	}
	return false
}

// evaluate returns the static score for the side to move.
func (s *Searcher) evaluate() int {
	res, err := s.eval.Evaluate(s.ctx, s.pos)
	if err != nil {
		s.err = err
		return 0
	}
	if s.pos.SideToMove() == board.White {
		return -res.Score
	}
	return res.Score
}

// negamax implements the negamax algorithm with alpha-beta pruning.
// Finished games are scored exactly by the evaluator, so no mate distance
// adjustment is needed for TT scores.
func (s *Searcher) negamax(depth, ply int, alpha, beta int) int {
	s.pv.length[ply] = 0
	if s.checkStop() {
		return 0
	}
	s.nodes++

	moves := s.pos.GenerateMoves()
	if depth <= 0 || len(moves) == 0 || ply >= MaxPly-1 {
		return s.evaluate()
	}

	alphaOrig := alpha
	ttMove := board.NoMove
	if entry, found := s.tt.Probe(s.pos.Hash); found {
		ttMove = entry.BestMove
		if ttMove != board.NoMove && !s.pos.IsLegal(ttMove) {
			ttMove = board.NoMove
		}

		if int(entry.Depth) >= depth && ply > 0 {
			score := int(entry.Score)
			switch entry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	scores := s.orderer.ScoreMoves(moves, ply, ttMove)
	bestScore := -Infinity
	bestMove := board.NoMove

	for i := range moves {
		PickMove(moves, scores, i)
		m := moves[i]

		s.undoStack[ply] = s.pos.MakeMove(m)
		score := -s.negamax(depth-1, ply+1, -beta, -alpha)
		s.pos.UnmakeMove(m, s.undoStack[ply])

		if s.err != nil {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m

			if score > alpha {
				alpha = score

				s.pv.moves[ply][0] = m
				copy(s.pv.moves[ply][1:], s.pv.moves[ply+1][:s.pv.length[ply+1]])
				s.pv.length[ply] = s.pv.length[ply+1] + 1

				if alpha >= beta {
					s.orderer.UpdateKillers(m, ply)
					s.orderer.UpdateHistory(m, depth)
					break
				}
			}
		}
	}

	flag := TTExact
	switch {
	case bestScore <= alphaOrig:
		flag = TTUpperBound
	case bestScore >= beta:
		flag = TTLowerBound
	}
	s.tt.Store(s.pos.Hash, depth, bestScore, flag, bestMove)

	// Fail-low roots still report a move.
	if ply == 0 && s.pv.length[0] == 0 {
		s.pv.moves[0][0] = bestMove
		s.pv.length[0] = 1
	}

	return bestScore
}
