package core

import (
	"context"
	"io"
	"time"

	"github.com/markdave123-py/docingest/internal/models"
)

// VectorStore is the storage collaborator. AddDocuments is a bulk upsert
// that callers treat as all-or-nothing.
type VectorStore interface {
	AddDocuments(ctx context.Context, docs []models.StorableDocument) error
	DeleteDocument(ctx context.Context, fingerprint string) error
	Health(ctx context.Context) error
}

// MetadataStore persists DocumentMetadata and ProcessingStatus keyed by fingerprint.
type MetadataStore interface {
	SaveMetadata(ctx context.Context, meta *models.DocumentMetadata) error
	GetMetadata(ctx context.Context, fingerprint string) (*models.DocumentMetadata, error)
	SetStatus(ctx context.Context, fingerprint string, status models.Status, message string) error
	GetStatus(ctx context.Context, fingerprint string) (*models.ProcessingStatus, error)
	ListByUser(ctx context.Context, userID string) ([]models.DocumentMetadata, error)
	DeleteMetadata(ctx context.Context, fingerprint string) error
}

// Cache is the cache collaborator. Implementations must not fail loudly:
// an unavailable backend reports a miss from Get, and Set errors are
// only informational.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// Monitor is the fire-and-forget monitoring collaborator.
type Monitor interface {
	LogEvent(name string, payload map[string]any)
	LogError(name string, message string)
	RecordCacheHit(category string)
	RecordCacheMiss(category string)
}
