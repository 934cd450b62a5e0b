package ingestion_engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

// TextExtractor returns the normalized text of an upload, or "" when
// nothing could be recovered.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) string
}

// Deps are the collaborators of a DocumentIngestor. Archive may be nil.
type Deps struct {
	Validator  *ContentValidator
	Extractor  TextExtractor
	Chunker    *SemanticChunker
	Embeddings *EmbeddingCache
	Encoder    *EmbeddingEncoder
	Store      core.VectorStore
	Meta       core.MetadataStore
	Results    core.Cache
	Archive    core.ObjectClient
	Monitor    core.Monitor
}

// DocumentIngestor runs uploads through
// validate → extract → chunk → embed → store, once per unique content.
//
// jobs: bounded in-memory queue feeding the async workers.
type DocumentIngestor struct {
	Deps
	cfg  *IngestConfig
	jobs chan IngestJob
	wg   sync.WaitGroup

	stopping chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

// NewDocumentIngestor constructs the ingestor with a bounded job queue.
func NewDocumentIngestor(deps Deps, cfg *IngestConfig, queueSize int) *DocumentIngestor {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &DocumentIngestor{
		Deps: deps,
		cfg:  cfg.withDefaults(),
		jobs: make(chan IngestJob, queueSize),
		now:  func() time.Time { return time.Now().UTC() },

		stopping: make(chan struct{}),
	}
}

// Ingest processes one upload and always returns a result. Failures are
// reported in result.Error and in the document's status, never as panics.
func (i *DocumentIngestor) Ingest(ctx context.Context, data []byte, filename, userID string) *models.IngestionResult {
	return i.ingest(ctx, data, filename, userID, false)
}

// ingest runs the pipeline. queued uploads already carry the pending
// status written by Enqueue.
func (i *DocumentIngestor) ingest(ctx context.Context, data []byte, filename, userID string, queued bool) (res *models.IngestionResult) {
	started := time.Now()
	fp := Fingerprint(data)

	defer func() {
		if r := recover(); r != nil {
			res = i.fail(ctx, fp, models.NewIngestError(models.KindInternal, fmt.Errorf("panic: %v", r)))
		}
	}()

	if cached, ok := i.cachedResult(ctx, fp); ok {
		i.setStatus(ctx, fp, models.StatusCompleted, "served from cache")
		i.Monitor.LogEvent("document_cache_hit", map[string]any{"fingerprint": fp, "file_name": filename})
		return cached
	}

	if !queued {
		i.setStatus(ctx, fp, models.StatusPending, "accepted")
	}
	i.setStatus(ctx, fp, models.StatusProcessing, "")
	i.Monitor.LogEvent("document_ingest_started", map[string]any{
		"fingerprint": fp, "file_name": filename, "bytes": len(data),
	})

	v := i.Validator.Validate(data, filename)
	if !v.Safe {
		return i.fail(ctx, fp, models.NewIngestError(v.Kind, errors.New(firstReason(v.Reasons)), v.Reasons...))
	}

	if err := ctx.Err(); err != nil {
		return i.fail(ctx, fp, models.NewIngestError(models.KindInternal, err))
	}

	i.archive(ctx, fp, data, v)

	text := i.Extractor.Extract(ctx, data, filename)
	if text == "" {
		return i.fail(ctx, fp, models.NewIngestError(models.KindExtractionFailed, models.ErrExtractionFailed))
	}

	meta := &models.DocumentMetadata{
		Fingerprint:     fp,
		FileName:        filename,
		ByteSize:        int64(len(data)),
		MimeType:        v.MimeType,
		Extension:       v.Extension,
		UploadedAt:      i.now(),
		UserID:          userID,
		PipelineVersion: i.cfg.PipelineVersion,
		Domain:          i.cfg.Domain,
	}
	if err := i.Meta.SaveMetadata(ctx, meta); err != nil {
		return i.fail(ctx, fp, models.NewIngestError(models.KindStorageFailed, fmt.Errorf("save metadata: %w", err)))
	}

	chunks := i.Chunker.Chunk(text)
	if len(chunks) == 0 {
		return i.fail(ctx, fp, models.NewIngestError(models.KindExtractionFailed, models.ErrExtractionFailed))
	}

	texts := make([]string, len(chunks))
	for k, c := range chunks {
		texts[k] = c.Text
	}
	computed := 0
	vectors, err := ResolveOrdered(texts,
		func(t string) ([]float32, bool) { return i.Embeddings.Get(ctx, t) },
		func(miss []string) ([][]float32, error) {
			vecs, err := i.Encoder.EncodeBatch(ctx, miss)
			if err != nil {
				return nil, err
			}
			for k := range miss {
				i.Embeddings.Put(ctx, miss[k], vecs[k])
			}
			computed = len(miss)
			return vecs, nil
		},
	)
	if err != nil {
		return i.fail(ctx, fp, models.NewIngestError(models.KindEncodingFailed, err))
	}

	docs := make([]models.StorableDocument, len(chunks))
	for k, c := range chunks {
		docs[k] = models.StorableDocument{
			ID:          DocumentID(fp, c.Index),
			Fingerprint: fp,
			ChunkIndex:  c.Index,
			Text:        c.Text,
			ChunkType:   c.Type,
			TokenCount:  c.TokenCount,
			Embedding:   vectors[k],
			Metadata:    chunkMetadata(meta, c),
		}
	}

	if err := ctx.Err(); err != nil {
		return i.fail(ctx, fp, models.NewIngestError(models.KindInternal, err))
	}

	// One call: a failure here leaves nothing visible to search. Cached
	// chunk vectors stay, they are still valid for identical text.
	if err := i.Store.AddDocuments(ctx, docs); err != nil {
		return i.fail(ctx, fp, models.NewIngestError(models.KindStorageFailed, err))
	}

	i.cacheResult(ctx, fp, meta, docs)
	i.setStatus(ctx, fp, models.StatusCompleted, fmt.Sprintf("%d chunks stored", len(docs)))
	i.Monitor.LogEvent("document_ingested", map[string]any{
		"fingerprint":         fp,
		"chunks":              len(docs),
		"embeddings_computed": computed,
		"duration_ms":         time.Since(started).Milliseconds(),
	})

	return &models.IngestionResult{
		Success:        true,
		Fingerprint:    fp,
		DocumentsCount: len(docs),
		Metadata:       meta,
		Documents:      docs,
	}
}

func (i *DocumentIngestor) cachedResult(ctx context.Context, fp string) (*models.IngestionResult, bool) {
	raw, ok := i.Results.Get(ctx, ResultCacheKey(fp))
	if !ok {
		i.Monitor.RecordCacheMiss("document")
		return nil, false
	}
	var cr models.CachedResult
	if err := json.Unmarshal(raw, &cr); err != nil {
		log.Printf("DocumentIngestor: discarding unreadable cached result for %s: %v", fp, err)
		i.Monitor.RecordCacheMiss("document")
		return nil, false
	}
	i.Monitor.RecordCacheHit("document")
	meta := cr.Metadata
	return &models.IngestionResult{
		Success:        true,
		Fingerprint:    fp,
		DocumentsCount: len(cr.Documents),
		Cached:         true,
		Metadata:       &meta,
		Documents:      cr.Documents,
	}, true
}

func (i *DocumentIngestor) cacheResult(ctx context.Context, fp string, meta *models.DocumentMetadata, docs []models.StorableDocument) {
	raw, err := json.Marshal(models.CachedResult{Metadata: *meta, Documents: docs})
	if err != nil {
		log.Printf("DocumentIngestor: encode result for %s: %v", fp, err)
		return
	}
	if err := i.Results.Set(ctx, ResultCacheKey(fp), raw, i.cfg.ResultCacheTTL); err != nil {
		log.Printf("DocumentIngestor: result cache write skipped for %s: %v", fp, err)
	}
}

// archive copies accepted raw bytes to object storage. Failure is logged only.
func (i *DocumentIngestor) archive(ctx context.Context, fp string, data []byte, v ValidationResult) {
	if i.Archive == nil || i.cfg.ArchiveBucket == "" {
		return
	}
	contentType := v.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := i.Archive.UploadFile(ctx, i.cfg.ArchiveBucket, ArchiveKey(fp, v.Extension), bytes.NewReader(data), contentType); err != nil {
		i.Monitor.LogError("archive_failed", fmt.Sprintf("%s: %v", fp, err))
	}
}

// ArchiveKey is the object key of an archived raw upload.
func ArchiveKey(fp, ext string) string {
	return "raw/" + fp + ext
}

func (i *DocumentIngestor) fail(ctx context.Context, fp string, ierr *models.IngestError) *models.IngestionResult {
	i.setStatus(ctx, fp, models.StatusFailed, ierr.Error())
	i.Monitor.LogError("ingestion_failed", fmt.Sprintf("%s: %s", fp, ierr.Error()))
	return &models.IngestionResult{Success: false, Fingerprint: fp, Error: ierr}
}

// setStatus survives cancellation of ctx so a cancelled upload still ends
// in a terminal status.
func (i *DocumentIngestor) setStatus(ctx context.Context, fp string, st models.Status, msg string) {
	if err := i.Meta.SetStatus(context.WithoutCancel(ctx), fp, st, msg); err != nil {
		log.Printf("DocumentIngestor: set status %s for %s: %v", st, fp, err)
	}
}

func chunkMetadata(meta *models.DocumentMetadata, c models.TextChunk) map[string]any {
	m := map[string]any{
		"file_name":        meta.FileName,
		"mime_type":        meta.MimeType,
		"extension":        meta.Extension,
		"uploaded_at":      meta.UploadedAt.Format(time.RFC3339),
		"pipeline_version": meta.PipelineVersion,
		"chunk_type":       string(c.Type),
		"overlap_tokens":   c.OverlapTokens,
	}
	if meta.UserID != "" {
		m["user_id"] = meta.UserID
	}
	if meta.Domain != "" {
		m["domain"] = meta.Domain
	}
	return m
}

func firstReason(reasons []string) string {
	if len(reasons) == 0 {
		return "validation failed"
	}
	return reasons[0]
}
