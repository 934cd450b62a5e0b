package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/docingest/internal/models"
)

// DocumentService answers queries about ingested documents and removes
// them. Ingestion itself goes through the ingestor.
type DocumentService struct {
	meta    core.MetadataStore
	store   core.VectorStore
	results core.Cache
	archive core.ObjectClient
	bucket  string
}

// NewDocumentService wires the stores. archive may be nil, and an empty
// bucket disables archive cleanup.
func NewDocumentService(meta core.MetadataStore, store core.VectorStore, results core.Cache, archive core.ObjectClient, bucket string) *DocumentService {
	return &DocumentService{meta: meta, store: store, results: results, archive: archive, bucket: bucket}
}

func (s *DocumentService) Get(ctx context.Context, fingerprint string) (*models.DocumentMetadata, error) {
	return s.meta.GetMetadata(ctx, fingerprint)
}

func (s *DocumentService) Status(ctx context.Context, fingerprint string) (*models.ProcessingStatus, error) {
	return s.meta.GetStatus(ctx, fingerprint)
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.DocumentMetadata, error) {
	docs, err := s.meta.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.DocumentMetadata{}
	}
	return docs, nil
}

// Delete removes a document's chunks, cached result, archived upload and
// metadata row. Cached chunk embeddings stay: they are keyed by text and
// still valid for any other document.
func (s *DocumentService) Delete(ctx context.Context, fingerprint string) error {
	st, err := s.meta.GetStatus(ctx, fingerprint)
	if err != nil {
		return err
	}
	if st.Status == models.StatusPending || st.Status == models.StatusProcessing {
		return fmt.Errorf("document %s is %s: %w", fingerprint, st.Status, ErrBusy)
	}

	if err := s.store.DeleteDocument(ctx, fingerprint); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.results.Delete(ctx, ingestion_engine.ResultCacheKey(fingerprint)); err != nil {
		log.Printf("DocumentService: drop cached result %s: %v", fingerprint, err)
	}

	if s.archive != nil && s.bucket != "" {
		meta, err := s.meta.GetMetadata(ctx, fingerprint)
		switch {
		case err == nil:
			key := ingestion_engine.ArchiveKey(fingerprint, meta.Extension)
			if err := s.archive.DeleteFile(ctx, s.bucket, key); err != nil {
				log.Printf("DocumentService: delete archived %s: %v", key, err)
			}
		case !errors.Is(err, models.ErrNotFound):
			return fmt.Errorf("load metadata: %w", err)
		}
	}

	if err := s.meta.DeleteMetadata(ctx, fingerprint); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

// ErrBusy is returned when deleting a document that is still being ingested.
var ErrBusy = errors.New("document is being processed")
