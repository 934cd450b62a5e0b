package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/docingest/internal/core"
)

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	dim       int
}

// NewGeminiEmbedder connects to the Gemini API. Vectors longer than dim
// are truncated and re-normalised; dim <= 0 keeps the model's width.
func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dim int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-embedding-001"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, dim: dim}, nil
}

// Name includes the output width, so vectors truncated to different
// dimensions never share embedding cache entries.
func (g *GeminiEmbedder) Name() string {
	if g.dim <= 0 {
		return g.modelName
	}
	return fmt.Sprintf("%s-%d", g.modelName, g.dim)
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// EmbedTexts batches all texts in one request via EmbeddingBatch.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := g.client.EmbeddingModel(g.modelName)
	em.TaskType = genai.TaskTypeRetrievalDocument

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini batch embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		vec, err := fitDim(e.Values, g.dim)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// fitDim truncates vec to dim and restores unit length.
func fitDim(vec []float32, dim int) ([]float32, error) {
	if dim <= 0 || len(vec) == dim {
		return vec, nil
	}
	if len(vec) < dim {
		return nil, fmt.Errorf("embedding has %d dimensions, need %d", len(vec), dim)
	}
	return normalize(append([]float32(nil), vec[:dim]...)), nil
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
