package core

import "context"

// DocumentExtractor turns the raw bytes of one format into text.
// An empty string with a nil error means the format produced no text.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}
