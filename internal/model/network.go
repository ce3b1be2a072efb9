package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"mnistd/internal/tensor"
)

// LayerKind identifies a layer in a Network and in the blob format.
type LayerKind uint8

const (
	LayerDense LayerKind = 1
	LayerReLU  LayerKind = 2
)

func (k LayerKind) String() string {
	switch k {
	case LayerDense:
		return "dense"
	case LayerReLU:
		return "relu"
	default:
		return fmt.Sprintf("layer(%d)", uint8(k))
	}
}

// Layer is one step of a Network. Dense layers compute W·x + b with W of
// shape (out, in); ReLU layers carry no parameters.
type Layer struct {
	Kind LayerKind
	W    *mat.Dense
	B    *mat.VecDense
}

// Dense builds a dense layer from row-major weights (out rows of in values)
// and out biases.
func Dense(in, out int, weights, bias []float64) (Layer, error) {
	if in <= 0 || out <= 0 {
		return Layer{}, fmt.Errorf("dense layer: invalid dims %dx%d", out, in)
	}
	if len(weights) != in*out {
		return Layer{}, fmt.Errorf("dense layer: %d weights for %dx%d", len(weights), out, in)
	}
	if len(bias) != out {
		return Layer{}, fmt.Errorf("dense layer: %d biases for %d outputs", len(bias), out)
	}
	w := make([]float64, len(weights))
	copy(w, weights)
	b := make([]float64, len(bias))
	copy(b, bias)
	return Layer{Kind: LayerDense, W: mat.NewDense(out, in, w), B: mat.NewVecDense(out, b)}, nil
}

// ReLU builds a rectifier layer.
func ReLU() Layer { return Layer{Kind: LayerReLU} }

func (l Layer) dims() (in, out int) {
	if l.Kind != LayerDense {
		return 0, 0
	}
	out, in = l.W.Dims()
	return in, out
}

// Network is a feed-forward stack of dense and ReLU layers mapping the
// flattened 784-pixel input to NumClasses scores.
type Network struct {
	precision Precision
	layers    []Layer
}

// NewNetwork validates that the layers chain from tensor.Pixels inputs to
// NumClasses outputs.
func NewNetwork(p Precision, layers ...Layer) (*Network, error) {
	if p != PrecisionFloat32 && p != PrecisionFloat64 {
		return nil, fmt.Errorf("network: unsupported precision %q", p)
	}
	width := tensor.Pixels
	dense := 0
	for i, l := range layers {
		switch l.Kind {
		case LayerDense:
			if l.W == nil || l.B == nil {
				return nil, fmt.Errorf("network: layer %d: missing parameters", i)
			}
			in, out := l.dims()
			if in != width {
				return nil, fmt.Errorf("network: layer %d expects %d inputs, previous layer yields %d", i, in, width)
			}
			if l.B.Len() != out {
				return nil, fmt.Errorf("network: layer %d: bias length %d, want %d", i, l.B.Len(), out)
			}
			width = out
			dense++
		case LayerReLU:
		default:
			return nil, fmt.Errorf("network: layer %d: unknown kind %v", i, l.Kind)
		}
	}
	if dense == 0 {
		return nil, fmt.Errorf("network: no dense layers")
	}
	if width != NumClasses {
		return nil, fmt.Errorf("network: final width %d, want %d", width, NumClasses)
	}
	return &Network{precision: p, layers: layers}, nil
}

// Precision reports the precision the network evaluates in.
func (n *Network) Precision() Precision { return n.precision }

// Layers returns the layer kinds and dense shapes, for inspection.
func (n *Network) Layers() []LayerInfo {
	out := make([]LayerInfo, 0, len(n.layers))
	for _, l := range n.layers {
		in, o := l.dims()
		out = append(out, LayerInfo{Kind: l.Kind, In: in, Out: o})
	}
	return out
}

// LayerInfo summarizes a layer.
type LayerInfo struct {
	Kind    LayerKind
	In, Out int
}

// Forward flattens x and runs it through the layers. In float32 precision
// every intermediate activation is rounded to float32, matching the
// arithmetic the weights were trained with.
func (n *Network) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	if x.Len() != tensor.Pixels {
		return tensor.Tensor{}, fmt.Errorf("%w: network input has %d elements, want %d", tensor.ErrShape, x.Len(), tensor.Pixels)
	}
	in := x.Data()
	v := mat.NewVecDense(len(in), nil)
	for i, f := range in {
		v.SetVec(i, float64(f))
	}
	return n.forward(v)
}

// ForwardPixels normalizes raw pixels at the network's own precision and
// runs the forward pass. float64 networks never see float32-rounded inputs.
func (n *Network) ForwardPixels(raw []float32) (tensor.Tensor, error) {
	if n.precision != PrecisionFloat64 {
		x, err := tensor.Normalize(raw)
		if err != nil {
			return tensor.Tensor{}, err
		}
		return n.Forward(x)
	}
	in, err := tensor.Normalize64(raw)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return n.forward(mat.NewVecDense(len(in), in))
}

func (n *Network) forward(v *mat.VecDense) (tensor.Tensor, error) {
	for _, l := range n.layers {
		switch l.Kind {
		case LayerDense:
			rows, _ := l.W.Dims()
			next := mat.NewVecDense(rows, nil)
			next.MulVec(l.W, v)
			next.AddVec(next, l.B)
			v = next
		case LayerReLU:
			for i := 0; i < v.Len(); i++ {
				if v.AtVec(i) < 0 {
					v.SetVec(i, 0)
				}
			}
		}
		if n.precision == PrecisionFloat32 {
			for i := 0; i < v.Len(); i++ {
				v.SetVec(i, float64(float32(v.AtVec(i))))
			}
		}
	}
	out := make([]float32, v.Len())
	for i := range out {
		out[i] = float32(v.AtVec(i))
	}
	return tensor.FromFloats(out, 1, NumClasses)
}
