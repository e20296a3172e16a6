// Package similarity implements the cosine scoring used to rank
// candidate papers against the query embedding.
package similarity

import "math"

// Cosine returns the cosine similarity of two equal-length vectors in
// [-1, 1]. It returns 0 when either vector is empty, the lengths
// differ, or either L2 norm is zero.
func Cosine(left, right []float64) float64 {
	if len(left) == 0 || len(right) == 0 || len(left) != len(right) {
		return 0
	}

	var dot, leftSq, rightSq float64
	for i := range left {
		dot += left[i] * right[i]
		leftSq += left[i] * left[i]
		rightSq += right[i] * right[i]
	}

	denominator := math.Sqrt(leftSq) * math.Sqrt(rightSq)
	if denominator == 0 {
		return 0
	}

	return dot / denominator
}
