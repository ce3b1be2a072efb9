package model

import (
	"math"
	"math/rand"

	"mnistd/internal/tensor"
)

// NewRandom builds an untrained network with Xavier-uniform weights and zero
// biases: Pixels -> hidden... -> NumClasses with ReLU between dense layers.
// It produces correctly shaped blobs for smoke tests and deployments that
// have not uploaded trained weights yet.
func NewRandom(p Precision, seed int64, hidden ...int) (*Network, error) {
	rng := rand.New(rand.NewSource(seed))
	widths := append([]int{tensor.Pixels}, hidden...)
	widths = append(widths, NumClasses)
	var layers []Layer
	for i := 0; i+1 < len(widths); i++ {
		in, out := widths[i], widths[i+1]
		limit := math.Sqrt(6 / float64(in+out))
		w := make([]float64, in*out)
		for j := range w {
			w[j] = (rng.Float64()*2 - 1) * limit
			if p == PrecisionFloat32 {
				w[j] = float64(float32(w[j]))
			}
		}
		l, err := Dense(in, out, w, make([]float64, out))
		if err != nil {
			return nil, err
		}
		if i > 0 {
			layers = append(layers, ReLU())
		}
		layers = append(layers, l)
	}
	return NewNetwork(p, layers...)
}
