package nn

import (
	"fmt"
	"math"
	"sync"
)

// LayerKind identifies the layer type in a model file.
type LayerKind uint8

const (
	Conv2D LayerKind = iota + 1
	Dense
)

func (k LayerKind) String() string {
	switch k {
	case Conv2D:
		return "conv2d"
	case Dense:
		return "dense"
	default:
		return fmt.Sprintf("LayerKind(%d)", uint8(k))
	}
}

// Padding mode for Conv2D layers.
type Padding uint8

const (
	PaddingValid Padding = iota
	PaddingSame
)

// LayerSpec describes one layer's shape and activation.
// Norm enables a per-unit affine (scale, shift) after the activation,
// which is how batch normalization is exported for inference.
type LayerSpec struct {
	Kind       LayerKind
	Units      int // Filters for Conv2D, neurons for Dense
	Kernel     int // Conv2D only, square kernel
	Stride     int // Conv2D only
	Padding    Padding
	Activation string
	Norm       bool
}

// Topology lists the layers in order. Conv2D layers run over the board
// tensor; the first Dense layer receives the flattened board features
// concatenated with the side input. The last layer must be Dense with one unit.
type Topology []LayerSpec

// DefaultTopology returns the production architecture: two conv stages
// that halve the board twice, followed by two hidden dense layers and a
// sigmoid output.
func DefaultTopology() Topology {
	conv := func(filters, kernel, stride int, pad Padding) LayerSpec {
		return LayerSpec{Kind: Conv2D, Units: filters, Kernel: kernel, Stride: stride, Padding: pad, Activation: ActReLU, Norm: true}
	}
	return Topology{
		conv(8, 3, 1, PaddingSame),
		conv(8, 3, 1, PaddingSame),
		conv(8, 2, 2, PaddingValid),
		conv(16, 3, 1, PaddingSame),
		conv(16, 3, 1, PaddingSame),
		conv(16, 2, 2, PaddingValid),
		{Kind: Dense, Units: 64, Activation: ActReLU, Norm: true},
		{Kind: Dense, Units: 64, Activation: ActReLU, Norm: true},
		{Kind: Dense, Units: 1, Activation: ActSigmoid},
	}
}

// Layer holds the weights of one layer.
type Layer struct {
	LayerSpec
	In      int       // Input channels (Conv2D) or features (Dense)
	Weights []float32 // Conv2D: [Kernel][Kernel][In][Units], Dense: [In][Units]
	Bias    []float32 // [Units]
	Scale   []float32 // [Units], nil unless Norm
	Shift   []float32 // [Units], nil unless Norm

	act Activation
}

func (l *Layer) weightCount() int {
	if l.Kind == Conv2D {
		return l.Kernel * l.Kernel * l.In * l.Units
	}
	return l.In * l.Units
}

// Network is a loaded scoring model. After Load it is read-only and safe
// for concurrent Predict calls; Close releases the weights.
type Network struct {
	// ID identifies the model artifact (xxhash of the file bytes).
	ID     uint64
	Layers []Layer

	mu     sync.RWMutex
	closed bool
}

// convOutput returns the output size and leading padding of a conv layer
// along one dimension of size n.
func convOutput(n int, spec LayerSpec) (out, pad int) {
	if spec.Padding == PaddingSame {
		out = (n + spec.Stride - 1) / spec.Stride
		total := max((out-1)*spec.Stride+spec.Kernel-n, 0)
		return out, total / 2
	}
	return (n-spec.Kernel)/spec.Stride + 1, 0
}

const maxUnits = 4096

// shapes walks a topology layer by layer, tracking the tensor shape.
type shapes struct {
	size, channels int
	units          int // Units of the previous layer
	dense          bool
	layer          int
}

func newShapes() *shapes {
	return &shapes{size: BoardSize, channels: Planes}
}

// next validates spec against the current shape and returns its input size.
func (s *shapes) next(spec LayerSpec) (int, error) {
	i := s.layer
	s.layer++

	if spec.Units <= 0 || spec.Units > maxUnits {
		return 0, fmt.Errorf("layer %d: invalid units %d", i, spec.Units)
	}

	switch spec.Kind {
	case Conv2D:
		if s.dense {
			return 0, fmt.Errorf("layer %d: conv2d after dense", i)
		}
		if spec.Kernel <= 0 || spec.Kernel > BoardSize || spec.Stride <= 0 || spec.Stride > BoardSize {
			return 0, fmt.Errorf("layer %d: invalid kernel %d or stride %d", i, spec.Kernel, spec.Stride)
		}
		out, _ := convOutput(s.size, spec)
		if out <= 0 || (spec.Padding == PaddingValid && s.size < spec.Kernel) {
			return 0, fmt.Errorf("layer %d: kernel %d does not fit %dx%d input", i, spec.Kernel, s.size, s.size)
		}
		in := s.channels
		s.size, s.channels, s.units = out, spec.Units, spec.Units
		return in, nil
	case Dense:
		in := s.units
		if !s.dense {
			in = s.size*s.size*s.channels + SideInputs
			s.dense = true
		}
		s.units = spec.Units
		return in, nil
	default:
		return 0, fmt.Errorf("layer %d: unknown kind %d", i, spec.Kind)
	}
}

// layout validates the topology and returns each layer's input size.
func layout(top Topology) ([]int, error) {
	if len(top) == 0 {
		return nil, fmt.Errorf("empty topology")
	}

	ins := make([]int, len(top))
	s := newShapes()
	for i, spec := range top {
		in, err := s.next(spec)
		if err != nil {
			return nil, err
		}
		ins[i] = in
	}

	if err := checkOutput(top[len(top)-1]); err != nil {
		return nil, err
	}
	return ins, nil
}

func checkOutput(last LayerSpec) error {
	if last.Kind != Dense || last.Units != 1 {
		return fmt.Errorf("last layer must be dense with 1 unit, got %s with %d", last.Kind, last.Units)
	}
	return nil
}

// resolve binds activation names to functions.
func (n *Network) resolve(acts Activations) error {
	for i := range n.Layers {
		act, ok := acts[n.Layers[i].Activation]
		if !ok {
			return fmt.Errorf("layer %d: unknown activation %q", i, n.Layers[i].Activation)
		}
		n.Layers[i].act = act
	}
	return nil
}

// NewNetwork creates a network with zero weights for the given topology.
func NewNetwork(top Topology, acts Activations) (*Network, error) {
	ins, err := layout(top)
	if err != nil {
		return nil, err
	}

	n := &Network{Layers: make([]Layer, len(top))}
	for i, spec := range top {
		l := Layer{LayerSpec: spec, In: ins[i]}
		l.Weights = make([]float32, l.weightCount())
		l.Bias = make([]float32, spec.Units)
		if spec.Norm {
			l.Scale = make([]float32, spec.Units)
			l.Shift = make([]float32, spec.Units)
			for u := range l.Scale {
				l.Scale[u] = 1
			}
		}
		n.Layers[i] = l
	}

	if err := n.resolve(acts); err != nil {
		return nil, err
	}
	return n, nil
}

// Topology returns the specs of the loaded layers.
func (n *Network) Topology() Topology {
	top := make(Topology, len(n.Layers))
	for i := range n.Layers {
		top[i] = n.Layers[i].LayerSpec
	}
	return top
}

// Predict scores a batch of inputs and returns one value per input.
func (n *Network) Predict(batch []Input) ([]float64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed || len(n.Layers) == 0 {
		return nil, ErrModelUnavailable
	}

	out := make([]float64, len(batch))
	for i := range batch {
		out[i] = float64(n.forward(&batch[i]))
	}
	return out, nil
}

// Close releases the weights. Later Predict calls fail with ErrModelUnavailable.
func (n *Network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.Layers = nil
	return nil
}

// forward runs one input through the network. Buffers are local so
// concurrent calls do not share state.
func (n *Network) forward(in *Input) float32 {
	size := BoardSize
	cur := make([]float32, 0, size*size*Planes+SideInputs)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			cur = append(cur, in.Board[r][c][:]...)
		}
	}

	flattened := false
	for li := range n.Layers {
		l := &n.Layers[li]

		if l.Kind == Conv2D {
			cur, size = l.conv(cur, size)
			continue
		}

		if !flattened {
			cur = append(cur, in.Side[:]...)
			flattened = true
		}
		cur = l.dense(cur)
	}
	return cur[0]
}

func (l *Layer) conv(in []float32, size int) ([]float32, int) {
	outSize, pad := convOutput(size, l.LayerSpec)
	out := make([]float32, outSize*outSize*l.Units)

	for oy := 0; oy < outSize; oy++ {
		for ox := 0; ox < outSize; ox++ {
			base := (oy*outSize + ox) * l.Units
			for u := 0; u < l.Units; u++ {
				sum := l.Bias[u]
				for ky := 0; ky < l.Kernel; ky++ {
					iy := oy*l.Stride + ky - pad
					if iy < 0 || iy >= size {
						continue
					}
					for kx := 0; kx < l.Kernel; kx++ {
						ix := ox*l.Stride + kx - pad
						if ix < 0 || ix >= size {
							continue
						}
						src := (iy*size + ix) * l.In
						w := ((ky*l.Kernel+kx)*l.In)*l.Units + u
						for ci := 0; ci < l.In; ci++ {
							sum += in[src+ci] * l.Weights[w+ci*l.Units]
						}
					}
				}
				out[base+u] = l.activate(sum, u)
			}
		}
	}
	return out, outSize
}

func (l *Layer) dense(in []float32) []float32 {
	out := make([]float32, l.Units)
	for u := 0; u < l.Units; u++ {
		sum := l.Bias[u]
		for i := 0; i < l.In; i++ {
			sum += in[i] * l.Weights[i*l.Units+u]
		}
		out[u] = l.activate(sum, u)
	}
	return out
}

func (l *Layer) activate(x float32, unit int) float32 {
	x = l.act(x)
	if l.Norm {
		x = x*l.Scale[unit] + l.Shift[unit]
	}
	return x
}

// InitRandom initializes weights with small random values (for testing only).
func (n *Network) InitRandom(seed int64) {
	// Use a simple LCG for reproducibility
	state := uint64(seed)
	next := func() float32 {
		state = state*6364136223846793005 + 1442695040888963407
		return float32((state>>40)&0xFFFF)/0x8000 - 1 // [-1, 1)
	}

	for i := range n.Layers {
		l := &n.Layers[i]
		limit := float32(math.Sqrt(6 / float64(l.In+l.Units)))
		for j := range l.Weights {
			l.Weights[j] = next() * limit
		}
		for j := range l.Bias {
			l.Bias[j] = next() * 0.1
		}
	}
}
