package board

// Zobrist hash keys for position hashing.
// Uses PRNG with fixed seed for reproducibility.
var (
	zobristDisc       [2][64]uint64 // [Color][Square]
	zobristSideToMove uint64        // XOR when white to move
)

func init() {
	initZobrist()
}

// Simple PRNG for reproducible Zobrist keys
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := newPRNG(0x98F107A2BEEF1234)

	for c := Black; c <= White; c++ {
		for sq := A1; sq <= H8; sq++ {
			zobristDisc[c][sq] = rng.next()
		}
	}

	zobristSideToMove = rng.next()
}

// ZobristDisc returns the Zobrist key for a disc of color c on sq.
func ZobristDisc(c Color, sq Square) uint64 {
	return zobristDisc[c][sq]
}

// ZobristSideToMove returns the Zobrist key for side to move.
func ZobristSideToMove() uint64 {
	return zobristSideToMove
}

// ComputeHash computes the Zobrist hash of the position from scratch.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for c := Black; c <= White; c++ {
		discs := p.Discs[c]
		for discs != 0 {
			h ^= zobristDisc[c][discs.PopLSB()]
		}
	}
	if p.Side == White {
		h ^= zobristSideToMove
	}
	return h
}
