package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core"
)

// NewProvider builds the configured embedding provider. The returned
// closer releases the remote client, if any.
func NewProvider(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, io.Closer, error) {
	var (
		p      core.EmbeddingProvider
		closer io.Closer = nopCloser{}
	)
	switch cfg.EmbedProvider {
	case "gemini":
		g, err := NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedDim)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini embedder: %w", err)
		}
		p, closer = g, g
	case "hash", "":
		p = NewHashEmbedder(cfg.EmbedDim)
	default:
		return nil, nil, fmt.Errorf("unknown embed provider %q", cfg.EmbedProvider)
	}
	return WithRateLimit(p, cfg.EmbedRPS, cfg.EmbedConcurrency), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
