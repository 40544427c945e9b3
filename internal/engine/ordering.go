package engine

import (
	"github.com/hailam/reversi/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore  = 10000000 // TT move gets highest priority
	KillerScore1 = 900000   // First killer move
	KillerScore2 = 800000   // Second killer move
)

// squareWeights is a static positional table, a1 first. Corners are
// searched first; X and C squares next to an empty corner last.
var squareWeights = [64]int{
	100, -20, 10, 5, 5, 10, -20, 100,
	-20, -50, -2, -2, -2, -2, -50, -20,
	10, -2, 1, 1, 1, 1, -2, 10,
	5, -2, 1, 0, 0, 1, -2, 5,
	5, -2, 1, 0, 0, 1, -2, 5,
	10, -2, 1, 1, 1, 1, -2, 10,
	-20, -50, -2, -2, -2, -2, -50, -20,
	100, -20, 10, 5, 5, 10, -20, 100,
}

// MoveOrderer handles move ordering for the search.
type MoveOrderer struct {
	// Killer moves (moves that caused beta cutoffs)
	killers [MaxPly][2]board.Move

	// History heuristic (indexed by target square)
	history [64]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	mo := &MoveOrderer{}
	mo.Clear()
	return mo
}

// Clear resets killers and ages history for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}

	// Age history scores (divide by 2 to prevent overflow)
	for i := range mo.history {
		mo.history[i] /= 2
	}
}

// ScoreMoves assigns scores to moves for ordering.
func (mo *MoveOrderer) ScoreMoves(moves []board.Move, ply int, ttMove board.Move) []int {
	scores := make([]int, len(moves))
	for i, m := range moves {
		scores[i] = mo.scoreMove(m, ply, ttMove)
	}
	return scores
}

func (mo *MoveOrderer) scoreMove(m board.Move, ply int, ttMove board.Move) int {
	switch {
	case m == ttMove:
		return TTMoveScore
	case m == board.PassMove:
		return 0
	case m == mo.killers[ply][0]:
		return KillerScore1
	case m == mo.killers[ply][1]:
		return KillerScore2
	}
	sq := m.Square()
	return squareWeights[sq]*1000 + mo.history[sq]
}

// PickMove moves the highest scoring move from index onwards to index.
func PickMove(moves []board.Move, scores []int, index int) {
	best := index
	for i := index + 1; i < len(moves); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	if best != index {
		moves[index], moves[best] = moves[best], moves[index]
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers stores a move that caused a beta cutoff.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if m == board.PassMove || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory rewards a cutoff move by depth².
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int) {
	if m == board.PassMove {
		return
	}
	sq := m.Square()
	mo.history[sq] += depth * depth
	if mo.history[sq] > 900 {
		for i := range mo.history {
			mo.history[i] /= 2
		}
	}
}
