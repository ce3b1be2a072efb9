// Package model defines the forward-pass capability used by the classifier
// and the backends that satisfy it:
//
//   - network.go: dense feed-forward network evaluated with gonum.
//   - codec.go: the versioned, dtype-tagged weight blob format.
//   - onnx.go / onnx_stub.go: ONNX Runtime backend, enabled with `-tags=onnx`.
//
// Callers should depend on the Model interface and on Decode; the concrete
// backends are selected from the blob contents.
package model

import (
	"errors"
	"time"

	"mnistd/internal/tensor"
)

// NumClasses is the size of the class axis produced by every backend.
const NumClasses = 10

// ErrDecode is wrapped by every failure to turn a blob into a model.
var ErrDecode = errors.New("model: decode weights")

// Model evaluates the digit network. Forward takes a (1, 28, 28) tensor and
// returns raw class scores of shape (1, 10).
type Model interface {
	Forward(x tensor.Tensor) (tensor.Tensor, error)
}

// Precision tags the numeric format the weights were encoded with.
type Precision string

const (
	PrecisionFloat32 Precision = "float32"
	PrecisionFloat64 Precision = "float64"
	PrecisionONNX    Precision = "onnx"
)

// Loaded is a decoded weight set ready for evaluation. It is immutable
// after construction.
type Loaded struct {
	Model     Model
	Precision Precision
	// Digest is the hex sha256 of the blob the model was decoded from.
	Digest   string
	Size     int
	LoadedAt time.Time
}

// Forward delegates to the underlying backend.
func (l *Loaded) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	return l.Model.Forward(x)
}

// PixelForwarder is implemented by backends that normalize raw pixels
// themselves, at their own precision.
type PixelForwarder interface {
	ForwardPixels(raw []float32) (tensor.Tensor, error)
}

// ForwardPixels normalizes raw and evaluates the model. Backends without
// their own normalization get the float32 tensor.Normalize.
func (l *Loaded) ForwardPixels(raw []float32) (tensor.Tensor, error) {
	if pf, ok := l.Model.(PixelForwarder); ok {
		return pf.ForwardPixels(raw)
	}
	x, err := tensor.Normalize(raw)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return l.Model.Forward(x)
}

// Closer is implemented by backends holding native resources.
type Closer interface {
	Close() error
}

// Close releases backend resources, if any.
func (l *Loaded) Close() error {
	if c, ok := l.Model.(Closer); ok {
		return c.Close()
	}
	return nil
}
