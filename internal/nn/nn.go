// Package nn implements the learned scoring function: a small convolutional
// network over the encoded board that outputs a win estimate in (0, 1).
package nn

import (
	"errors"
	"math"
)

// Input dimensions
const (
	BoardSize  = 8 // Rows and columns of the spatial input
	Planes     = 2 // One plane per color: (black, white)
	SideInputs = 2 // One-hot side to move: (black, white)
)

// ErrModelUnavailable is returned when the network failed to load, was never
// loaded, or has been closed.
var ErrModelUnavailable = errors.New("scoring model unavailable")

// Input is one encoded position: the (8, 8, 2) spatial tensor and the (2,) side tensor.
// A batch of inputs ([]Input) has a leading dimension N.
type Input struct {
	Board [BoardSize][BoardSize][Planes]float32
	Side  [SideInputs]float32
}

// Activation is an element-wise activation function.
type Activation func(x float32) float32

// Activations maps serialized activation names to functions. The map is
// passed explicitly to Load so a model file can only reference functions
// the caller chose to provide.
type Activations map[string]Activation

// Activation names understood by DefaultActivations.
const (
	ActLinear           = "linear"
	ActReLU             = "relu"
	ActSigmoid          = "sigmoid"
	ActTanh             = "tanh"
	ActShiftedLeakyReLU = "shifted_leaky_relu"
)

// DefaultActivations returns a fresh map of the built-in activations.
func DefaultActivations() Activations {
	return Activations{
		ActLinear:           Linear,
		ActReLU:             ReLU,
		ActSigmoid:          Sigmoid,
		ActTanh:             Tanh,
		ActShiftedLeakyReLU: ShiftedLeakyReLU,
	}
}

// Linear returns x unchanged.
func Linear(x float32) float32 { return x }

// ReLU returns max(0, x).
func ReLU(x float32) float32 {
	if x < 0 {
		return 0
	}
	return x
}

// Sigmoid returns 1 / (1 + e^-x).
func Sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// Tanh returns the hyperbolic tangent of x.
func Tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// ShiftedLeakyReLU returns max(0.5x, x) floored at -1.
func ShiftedLeakyReLU(x float32) float32 {
	return max(-1, max(0.5*x, x))
}
