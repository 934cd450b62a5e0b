package models

import (
	"time"
)

// Status is the processing lifecycle of an uploaded document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ChunkType tags how a chunk boundary was chosen.
type ChunkType string

const (
	ChunkSemantic ChunkType = "semantic"
	ChunkFallback ChunkType = "fallback"
)

// DocumentMetadata describes one unique upload, keyed by its fingerprint.
type DocumentMetadata struct {
	Fingerprint     string    `db:"fingerprint" json:"fingerprint"`
	FileName        string    `db:"file_name" json:"file_name"`
	ByteSize        int64     `db:"byte_size" json:"byte_size"`
	MimeType        string    `db:"mime_type" json:"mime_type"`
	Extension       string    `db:"extension" json:"extension"`
	UploadedAt      time.Time `db:"uploaded_at" json:"uploaded_at"`
	UserID          string    `db:"user_id" json:"user_id,omitempty"`
	PipelineVersion string    `db:"pipeline_version" json:"pipeline_version"`
	Domain          string    `db:"domain" json:"domain,omitempty"`
}

// ProcessingStatus is the mutable part of a document record.
type ProcessingStatus struct {
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	Status      Status    `db:"status" json:"status"`
	Message     string    `db:"status_message" json:"message,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TextChunk is one ordered slice of a document's text.
//
// OverlapTokens is the number of leading words copied from the previous
// chunk; stripping them yields the chunk's own sentences.
type TextChunk struct {
	Index         int       `json:"index"`
	Text          string    `json:"text"`
	Type          ChunkType `json:"type"`
	TokenCount    int       `json:"token_count"`
	OverlapTokens int       `json:"overlap_tokens"`
}

// StorableDocument is the write-once unit handed to the vector store.
type StorableDocument struct {
	ID          string         `db:"id" json:"id"` // fingerprint_chunkIndex
	Fingerprint string         `db:"fingerprint" json:"fingerprint"`
	ChunkIndex  int            `db:"chunk_index" json:"chunk_index"`
	Text        string         `db:"text" json:"text"`
	ChunkType   ChunkType      `db:"chunk_type" json:"chunk_type"`
	TokenCount  int            `db:"token_count" json:"token_count"`
	Embedding   []float32      `db:"embedding" json:"embedding"` // pgvector column
	Metadata    map[string]any `db:"metadata" json:"metadata"`
}

// IngestionResult is what the coordinator returns for every upload.
type IngestionResult struct {
	Success        bool               `json:"success"`
	Fingerprint    string             `json:"fingerprint"`
	DocumentsCount int                `json:"documents_count"`
	Cached         bool               `json:"cached"`
	Metadata       *DocumentMetadata  `json:"metadata,omitempty"`
	Documents      []StorableDocument `json:"-"`
	Error          *IngestError       `json:"error,omitempty"`
}

// CachedResult is the serialised form of a completed ingestion kept
// under the document fingerprint.
type CachedResult struct {
	Metadata  DocumentMetadata   `json:"metadata"`
	Documents []StorableDocument `json:"documents"`
}
