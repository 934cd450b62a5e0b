package llm

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docingest/internal/config"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(16)
	assert.Equal(t, "hash-16", h.Name())

	out, err := h.EmbedTexts(context.Background(), []string{"alpha", "beta", "alpha", ""})
	require.NoError(t, err)
	require.Len(t, out, 4)
	for _, v := range out {
		assert.Len(t, v, 16)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
	assert.Equal(t, out[0], out[2])
	assert.NotEqual(t, out[0], out[1])

	again, err := NewHashEmbedder(16).EmbedTexts(context.Background(), []string{"alpha"})
	require.NoError(t, err)
	assert.Equal(t, out[0], again[0])
}

func TestHashEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(4).EmbedTexts(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFitDim(t *testing.T) {
	v := []float32{3, 4, 12}
	got, err := fitDim(v, 0)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	got, err = fitDim(v, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, got, 1e-6)
	assert.Equal(t, float32(3), v[0], "input is not modified")

	_, err = fitDim(v, 5)
	assert.Error(t, err)
}

func TestGeminiEmbedder_NameCarriesDim(t *testing.T) {
	assert.Equal(t, "text-embedding-004-384", (&GeminiEmbedder{modelName: "text-embedding-004", dim: 384}).Name())
	assert.Equal(t, "text-embedding-004-768", (&GeminiEmbedder{modelName: "text-embedding-004", dim: 768}).Name())
	assert.Equal(t, "text-embedding-004", (&GeminiEmbedder{modelName: "text-embedding-004"}).Name())
}

func TestWithRateLimit(t *testing.T) {
	h := NewHashEmbedder(4)
	assert.Same(t, h, WithRateLimit(h, 0, 1))

	limited := WithRateLimit(h, 20, 1)
	assert.Equal(t, "hash-4", limited.Name())

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := limited.EmbedTexts(context.Background(), []string{"x"})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithRateLimit(h, 0.001, 1).EmbedTexts(ctx, []string{"x"})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, closer, err := NewProvider(context.Background(), &config.Config{EmbedProvider: "hash", EmbedDim: 8})
	require.NoError(t, err)
	assert.Equal(t, "hash-8", p.Name())
	assert.NoError(t, closer.Close())

	_, _, err = NewProvider(context.Background(), &config.Config{EmbedProvider: "openai"})
	assert.Error(t, err)
}
