package embedder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestTruncateAndNormalizeCutsWideVectors(t *testing.T) {
	wide := make([]float64, 1024)
	for i := range wide {
		wide[i] = float64(i + 1)
	}

	out := truncateAndNormalize(wide, Dimensions)

	require.Len(t, out, Dimensions)
	assert.InDelta(t, 1.0, vectorNorm(out), 1e-5)
}

func TestTruncateAndNormalizeKeepsNarrowVectors(t *testing.T) {
	out := truncateAndNormalize([]float64{3, 4}, Dimensions)

	require.Len(t, out, 2)
	assert.InDelta(t, 0.6, float64(out[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(out[1]), 1e-6)
}

func TestTruncateAndNormalizeZeroVector(t *testing.T) {
	out := truncateAndNormalize(make([]float64, 10), Dimensions)

	require.Len(t, out, 10)
	for _, v := range out {
		assert.Zero(t, v)
	}
}

func TestTruncateChangesDirectionlessly(t *testing.T) {
	// the kept prefix keeps its relative proportions after renormalization
	wide := make([]float64, 1024)
	wide[0] = 2
	wide[1] = 4

	out := truncateAndNormalize(wide, Dimensions)
	assert.InDelta(t, 2.0, float64(out[1])/float64(out[0]), 1e-5)
}

func TestUnloadDropsClient(t *testing.T) {
	e := New(Config{APIKey: "k", Model: "m"})
	e.getClient()
	require.NotNil(t, e.client)

	e.Unload()
	assert.Nil(t, e.client)
}
