package tensor

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Distribution is a probability vector aligned with the label table
type Distribution []float32

// Decode turns raw logits into probabilities with a max-shifted softmax.
// The output has the same length as the input. NaN or infinite scores are
// rejected since they cannot form a distribution.
func Decode(logits []float32) (Distribution, error) {
	if len(logits) == 0 {
		return nil, ErrEmptyLogits
	}

	max := logits[0]
	for i, v := range logits {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: index %d is %v", ErrNonFiniteLogits, i, v)
		}
		if v > max {
			max = v
		}
	}

	out := make(Distribution, len(logits))
	var sum float32
	for i, v := range logits {
		e := math32.Exp(v - max)
		out[i] = e
		sum += e
	}
	if sum <= 0 || math32.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: sum %v", ErrNonFiniteLogits, sum)
	}
	for i := range out {
		out[i] /= sum
	}
	return out, nil
}

// Argmax returns the index and value of the largest probability.
// Ties go to the lowest index; an empty distribution yields (-1, 0).
func Argmax(d Distribution) (int, float32) {
	if len(d) == 0 {
		return -1, 0
	}
	best := 0
	for i := 1; i < len(d); i++ {
		if d[i] > d[best] {
			best = i
		}
	}
	return best, d[best]
}
