package ingestion_engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/docingest/internal/core"
)

// EmbeddingEncoder batches texts through the process-wide provider.
type EmbeddingEncoder struct {
	provider    core.EmbeddingProvider
	batchSize   int
	concurrency int
}

func NewEmbeddingEncoder(provider core.EmbeddingProvider, batchSize, concurrency int) *EmbeddingEncoder {
	if batchSize <= 0 {
		batchSize = 64
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &EmbeddingEncoder{provider: provider, batchSize: batchSize, concurrency: concurrency}
}

func (e *EmbeddingEncoder) Name() string { return e.provider.Name() }

// EncodeBatch returns one vector per text, in input order. Any failed
// batch fails the whole call and cancels batches still in flight.
func (e *EmbeddingEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.provider.EmbedTexts(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
