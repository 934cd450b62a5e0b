package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/markdave123-py/docingest/internal/core"
)

// RateLimited spaces out calls to a provider. Each EmbedTexts call takes
// one token, however many texts it carries.
type RateLimited struct {
	core.EmbeddingProvider
	limiter *rate.Limiter
}

// WithRateLimit wraps p; rps <= 0 returns p unchanged.
func WithRateLimit(p core.EmbeddingProvider, rps float64, burst int) core.EmbeddingProvider {
	if rps <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{EmbeddingProvider: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.EmbeddingProvider.EmbedTexts(ctx, texts)
}
