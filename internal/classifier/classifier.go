// Package classifier runs the digit pipeline: normalize the raw pixels,
// evaluate the loaded model and turn its scores into class probabilities.
package classifier

import (
	"errors"
	"fmt"

	"mnistd/internal/model"
	"mnistd/internal/tensor"
)

var (
	// ErrMalformedInput is returned when the input is not exactly
	// tensor.Pixels values.
	ErrMalformedInput = errors.New("malformed input")
	// ErrNoModel is returned when Classify is called without a loaded model.
	// Callers must load the model first; reaching this is a programming error.
	ErrNoModel = errors.New("classifier: no model loaded")
)

// Probabilities holds one probability per digit class, ordered 0-9.
type Probabilities []float32

// Decision is the most likely class together with the full distribution.
type Decision struct {
	Class         int
	Probabilities Probabilities
}

// ValidateInput checks the raw input length without touching a model.
func ValidateInput(raw []float32) error {
	if len(raw) != tensor.Pixels {
		return fmt.Errorf("%w: expected %d values, got %d", ErrMalformedInput, tensor.Pixels, len(raw))
	}
	return nil
}

// Classify returns softmax probabilities over the 10 digit classes.
func Classify(m *model.Loaded, raw []float32) (Probabilities, error) {
	probs, err := classify(m, raw)
	if err != nil {
		return nil, err
	}
	return Probabilities(probs.Data()), nil
}

// Decide classifies raw and picks the most likely class. Ties resolve to
// the lowest class.
func Decide(m *model.Loaded, raw []float32) (Decision, error) {
	probs, err := classify(m, raw)
	if err != nil {
		return Decision{}, err
	}
	idx, err := tensor.Argmax(probs, 1)
	if err != nil {
		return Decision{}, fmt.Errorf("argmax: %w", err)
	}
	return Decision{Class: idx[0], Probabilities: Probabilities(probs.Data())}, nil
}

// classify returns the (1, NumClasses) probability tensor.
func classify(m *model.Loaded, raw []float32) (tensor.Tensor, error) {
	if m == nil || m.Model == nil {
		return tensor.Tensor{}, ErrNoModel
	}
	if err := ValidateInput(raw); err != nil {
		return tensor.Tensor{}, err
	}
	scores, err := m.ForwardPixels(raw)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("forward: %w", err)
	}
	if s := scores.Shape(); len(s) != 2 || s[0] != 1 || s[1] != model.NumClasses {
		return tensor.Tensor{}, fmt.Errorf("forward: unexpected output shape %v, want [1 %d]", s, model.NumClasses)
	}
	probs, err := tensor.Softmax(scores, 1)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("softmax: %w", err)
	}
	if !probs.Finite() {
		return tensor.Tensor{}, fmt.Errorf("softmax: non-finite output")
	}
	return probs, nil
}
