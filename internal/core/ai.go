package core

import "context"

// EmbeddingProvider is the embedding-model collaborator. It returns one
// vector per input text, in input order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// Name identifies the model; it namespaces cached vectors.
	Name() string
}
