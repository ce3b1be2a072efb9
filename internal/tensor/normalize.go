package tensor

import "fmt"

// Image geometry and normalization constants of the trained digit weights.
// They are fixed by training and must not be tuned at runtime.
const (
	Height   = 28
	Width    = 28
	Channels = 1
	Pixels   = Height * Width

	mean = 0.1307
	std  = 0.3081

	Mean = float32(mean)
	Std  = float32(std)
)

// InputShape is the tensor shape expected by the model backends.
func InputShape() []int { return []int{Channels, Height, Width} }

// Normalize reshapes a flat 784-pixel image to (1, 28, 28) and maps every
// value v to ((v/255) - Mean) / Std in float32. Values outside [0,255] are
// not clamped.
func Normalize(raw []float32) (Tensor, error) {
	t, err := FromFloats(raw)
	if err != nil {
		return Tensor{}, err
	}
	t, err = t.Reshape(InputShape()...)
	if err != nil {
		return Tensor{}, err
	}
	return t.Map(func(v float32) float32 {
		return ((v / 255) - Mean) / Std
	}), nil
}

// Normalize64 is Normalize evaluated in float64, for backends whose weights
// are float64. The result is the flattened (1, 28, 28) image.
func Normalize64(raw []float32) ([]float64, error) {
	if len(raw) != Pixels {
		return nil, fmt.Errorf("%w: %d elements cannot form %v", ErrShape, len(raw), InputShape())
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = ((float64(v) / 255) - mean) / std
	}
	return out, nil
}
