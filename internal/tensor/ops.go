package tensor

import "math"

// Softmax normalizes t along axis into probabilities. Values are shifted
// by the per-slice maximum before exponentiation so large logits cannot
// overflow and equal logits give a uniform distribution.
func Softmax(t Tensor, axis int) (Tensor, error) {
	outer, size, inner, err := t.strides(axis)
	if err != nil {
		return Tensor{}, err
	}
	out := make([]float32, len(t.data))
	exps := make([]float64, size)
	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			base := o*size*inner + j
			maxV := math.Inf(-1)
			for i := 0; i < size; i++ {
				if v := float64(t.data[base+i*inner]); v > maxV {
					maxV = v
				}
			}
			var sum float64
			for i := 0; i < size; i++ {
				e := math.Exp(float64(t.data[base+i*inner]) - maxV)
				exps[i] = e
				sum += e
			}
			for i := 0; i < size; i++ {
				out[base+i*inner] = float32(exps[i] / sum)
			}
		}
	}
	return Tensor{shape: append([]int(nil), t.shape...), data: out}, nil
}

// Argmax returns, for every slice along axis, the index of the largest
// element. Ties resolve to the lowest index.
func Argmax(t Tensor, axis int) ([]int, error) {
	outer, size, inner, err := t.strides(axis)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, outer*inner)
	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			base := o*size*inner + j
			best := 0
			for i := 1; i < size; i++ {
				if t.data[base+i*inner] > t.data[base+best*inner] {
					best = i
				}
			}
			out = append(out, best)
		}
	}
	return out, nil
}
