package nn

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Weight file format constants
const (
	MagicNumber = 0x4E4E5652 // "RVNN"
	Version     = 1

	maxLayerWeights = 1 << 24
)

// FileHeader is the header of the weight file.
type FileHeader struct {
	Magic   uint32
	Version uint32
	Layers  uint32
}

// layerHeader precedes each layer's activation name and weights.
type layerHeader struct {
	Kind    uint8
	Padding uint8
	Norm    uint8
	NameLen uint8
	Units   uint32
	Kernel  uint32
	Stride  uint32
	In      uint32
}

// Load reads a model file and binds its activations from acts.
// File format (little-endian):
//   - Header: Magic (4 bytes), Version (4 bytes), layer count (4 bytes)
//   - Per layer: kind, padding, norm flag, name length (1 byte each),
//     units, kernel, stride, inputs (4 bytes each), activation name
//   - Weights: float32, Conv2D [k][k][in][units], Dense [in][units]
//   - Bias: units * float32
//   - Scale, Shift: units * float32 each, only when the norm flag is set
func Load(filename string, acts Activations) (*Network, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open weights file: %w", ErrModelUnavailable, err)
	}
	return LoadBytes(data, acts)
}

// LoadReader loads a model from an io.Reader.
func LoadReader(r io.Reader, acts Activations) (*Network, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read weights: %w", ErrModelUnavailable, err)
	}
	return LoadBytes(data, acts)
}

// LoadBytes loads a model from its serialized bytes. Every failure wraps
// ErrModelUnavailable.
func LoadBytes(data []byte, acts Activations) (*Network, error) {
	net, err := decode(data, acts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return net, nil
}

func decode(data []byte, acts Activations) (*Network, error) {
	r := bytes.NewReader(data)

	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("invalid magic number: expected %x, got %x", MagicNumber, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("unsupported version: expected %d, got %d", Version, header.Version)
	}
	if header.Layers == 0 || header.Layers > 64 {
		return nil, fmt.Errorf("invalid layer count: %d", header.Layers)
	}

	layers := make([]Layer, header.Layers)
	shape := newShapes()
	for i := range layers {
		var lh layerHeader
		if err := binary.Read(r, binary.LittleEndian, &lh); err != nil {
			return nil, fmt.Errorf("failed to read layer %d header: %w", i, err)
		}
		name := make([]byte, lh.NameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("failed to read layer %d activation: %w", i, err)
		}

		l := Layer{
			LayerSpec: LayerSpec{
				Kind:       LayerKind(lh.Kind),
				Units:      int(lh.Units),
				Kernel:     int(lh.Kernel),
				Stride:     int(lh.Stride),
				Padding:    Padding(lh.Padding),
				Activation: string(name),
				Norm:       lh.Norm != 0,
			},
			In: int(lh.In),
		}

		// Shapes are checked before allocating so a corrupt size cannot
		// trigger a huge allocation.
		in, err := shape.next(l.LayerSpec)
		if err != nil {
			return nil, fmt.Errorf("invalid topology: %w", err)
		}
		if in != l.In {
			return nil, fmt.Errorf("layer %d: input size mismatch: expected %d, got %d", i, in, l.In)
		}
		if l.weightCount() > maxLayerWeights {
			return nil, fmt.Errorf("layer %d: too many weights: %d", i, l.weightCount())
		}

		l.Weights = make([]float32, l.weightCount())
		l.Bias = make([]float32, l.Units)
		if err := binary.Read(r, binary.LittleEndian, l.Weights); err != nil {
			return nil, fmt.Errorf("failed to read layer %d weights: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, l.Bias); err != nil {
			return nil, fmt.Errorf("failed to read layer %d bias: %w", i, err)
		}
		if l.Norm {
			l.Scale = make([]float32, l.Units)
			l.Shift = make([]float32, l.Units)
			if err := binary.Read(r, binary.LittleEndian, l.Scale); err != nil {
				return nil, fmt.Errorf("failed to read layer %d scale: %w", i, err)
			}
			if err := binary.Read(r, binary.LittleEndian, l.Shift); err != nil {
				return nil, fmt.Errorf("failed to read layer %d shift: %w", i, err)
			}
		}
		layers[i] = l
	}

	if err := checkOutput(layers[len(layers)-1].LayerSpec); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("trailing data: %d bytes", r.Len())
	}

	n := &Network{ID: xxhash.Sum64(data), Layers: layers}
	if err := n.resolve(acts); err != nil {
		return nil, err
	}
	return n, nil
}

// Save writes the network to a file and sets ID to the hash of the written bytes.
func (n *Network) Save(filename string) error {
	var buf bytes.Buffer
	if err := n.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	n.ID = xxhash.Sum64(buf.Bytes())
	return nil
}

// Write serializes the network in the format read by Load.
func (n *Network) Write(w io.Writer) error {
	header := FileHeader{
		Magic:   MagicNumber,
		Version: Version,
		Layers:  uint32(len(n.Layers)),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range n.Layers {
		l := &n.Layers[i]
		if len(l.Activation) > 255 {
			return fmt.Errorf("layer %d: activation name too long", i)
		}
		var norm uint8
		if l.Norm {
			norm = 1
		}
		lh := layerHeader{
			Kind:    uint8(l.Kind),
			Padding: uint8(l.Padding),
			Norm:    norm,
			NameLen: uint8(len(l.Activation)),
			Units:   uint32(l.Units),
			Kernel:  uint32(l.Kernel),
			Stride:  uint32(l.Stride),
			In:      uint32(l.In),
		}
		if err := binary.Write(w, binary.LittleEndian, &lh); err != nil {
			return fmt.Errorf("failed to write layer %d header: %w", i, err)
		}
		if _, err := io.WriteString(w, l.Activation); err != nil {
			return fmt.Errorf("failed to write layer %d activation: %w", i, err)
		}

		parts := [][]float32{l.Weights, l.Bias}
		if l.Norm {
			parts = append(parts, l.Scale, l.Shift)
		}
		for _, p := range parts {
			if err := binary.Write(w, binary.LittleEndian, p); err != nil {
				return fmt.Errorf("failed to write layer %d weights: %w", i, err)
			}
		}
	}

	return nil
}
