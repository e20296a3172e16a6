package similarity

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors score 1", func(t *testing.T) {
		assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{1, 0}), 1e-12)
	})

	t.Run("orthogonal vectors score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}))
	})

	t.Run("opposite vectors score -1", func(t *testing.T) {
		assert.InDelta(t, -1.0, Cosine([]float64{1, 2}, []float64{-1, -2}), 1e-12)
	})

	t.Run("scale invariant", func(t *testing.T) {
		left := []float64{0.3, -0.7, 0.2}
		scaled := []float64{3, -7, 2}
		assert.InDelta(t, 1.0, Cosine(left, scaled), 1e-12)
	})
}

func TestCosineDegenerateInputs(t *testing.T) {
	t.Run("empty left", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine(nil, []float64{1}))
	})

	t.Run("empty right", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float64{1}, nil))
	})

	t.Run("length mismatch", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float64{1, 2}, []float64{1}))
	})

	t.Run("zero norm", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 2}))
		assert.Equal(t, 0.0, Cosine([]float64{1, 2}, []float64{0, 0}))
	})
}

func TestCosineProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 100; trial++ {
		dims := 1 + rng.Intn(64)
		left := make([]float64, dims)
		right := make([]float64, dims)
		for i := range left {
			left[i] = rng.NormFloat64()
			right[i] = rng.NormFloat64()
		}

		score := Cosine(left, right)
		assert.False(t, math.IsNaN(score))
		assert.GreaterOrEqual(t, score, -1.0-1e-12)
		assert.LessOrEqual(t, score, 1.0+1e-12)

		// Symmetric, bitwise equal: both orders accumulate identical
		// float operations.
		assert.Equal(t, score, Cosine(right, left))
	}
}
