package eval

import "math"

// Clip bounds. TanhLimit keeps InverseTanh away from its poles at ±1.
// InverseTanhLimit is tighter so that 100·InverseTanh(x)² stays within
// HeuristicBound (InverseTanh(InverseTanhLimit) ≈ 8).
const (
	TanhLimit        = 1 - 1e-16
	InverseTanhLimit = 0.9999997749296759
)

// ScoreScale converts the transformed network output to engine units.
const ScoreScale = 100

func clip(x, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, x))
}

// InverseTanh returns atanh(x) = 0.5·ln((1+x)/(1−x)) with x clipped to
// ±TanhLimit, so inputs at or beyond ±1 give the value at the bound.
func InverseTanh(x float64) float64 {
	x = clip(x, TanhLimit)
	return 0.5 * math.Log((x+1)/(1-x))
}

// InverseTanhSquared returns sign(x)·atanh(x)² with x clipped to
// ±InverseTanhLimit. It is odd, zero at zero and strictly increasing.
func InverseTanhSquared(x float64) float64 {
	x = clip(x, InverseTanhLimit)
	if x == 0 {
		return 0
	}
	a := InverseTanh(math.Abs(x))
	return math.Copysign(a*a, x)
}

// HeuristicScore maps a raw scorer output y to an engine score:
// int(ScoreScale · InverseTanhSquared(y)), truncated toward zero.
//
// y is passed through unchanged (no 2y−1 remap), matching the deployed
// model, so every output in (0, 1) maps to a non-negative score.
func HeuristicScore(y float64) int {
	return int(ScoreScale * InverseTanhSquared(y))
}
