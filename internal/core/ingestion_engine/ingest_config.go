package ingestion_engine

import (
	"time"

	"github.com/markdave123-py/docingest/internal/config"
)

// IngestConfig tunes the pipeline.
//
// TargetTokens:    approximate words per chunk (e.g., 1000).
// OverlapTokens:   words copied from the end of one chunk to the start of the next (e.g., 200).
// BatchSize:       chunks per encoder call (e.g., 64).
// Concurrency:     encoder batches in flight for one document.
// EmbedCacheTTL:   lifetime of a cached chunk vector.
// ResultCacheTTL:  lifetime of a cached ingestion result.
// PipelineVersion: tag stamped on metadata so re-processing can be detected.
// Domain:          optional domain tag stamped on metadata.
// ArchiveBucket:   bucket for raw uploads; empty disables archiving.
// JobTimeout:      upper bound for one queued ingestion.
type IngestConfig struct {
	TargetTokens    int
	OverlapTokens   int
	BatchSize       int
	Concurrency     int
	EmbedCacheTTL   time.Duration
	ResultCacheTTL  time.Duration
	PipelineVersion string
	Domain          string
	ArchiveBucket   string
	JobTimeout      time.Duration
}

// NewIngestConfig maps the process configuration onto pipeline knobs.
func NewIngestConfig(cfg *config.Config) *IngestConfig {
	ic := &IngestConfig{
		TargetTokens:    cfg.ChunkTargetTokens,
		OverlapTokens:   cfg.ChunkOverlapTokens,
		BatchSize:       cfg.EmbedBatchSize,
		Concurrency:     cfg.EmbedConcurrency,
		EmbedCacheTTL:   cfg.EmbedCacheTTL,
		ResultCacheTTL:  cfg.ResultCacheTTL,
		PipelineVersion: cfg.PipelineVersion,
		Domain:          cfg.DomainTag,
		JobTimeout:      cfg.IngestTimeout,
	}
	if cfg.S3ArchiveEnabled {
		ic.ArchiveBucket = cfg.BucketName
	}
	return ic
}

func (c *IngestConfig) withDefaults() *IngestConfig {
	out := *c
	if out.TargetTokens <= 0 {
		out.TargetTokens = 1000
	}
	if out.OverlapTokens < 0 || out.OverlapTokens >= out.TargetTokens {
		out.OverlapTokens = 0
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 64
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 1
	}
	if out.EmbedCacheTTL <= 0 {
		out.EmbedCacheTTL = 24 * time.Hour
	}
	if out.ResultCacheTTL <= 0 {
		out.ResultCacheTTL = 24 * time.Hour
	}
	if out.JobTimeout <= 0 {
		out.JobTimeout = 5 * time.Minute
	}
	return &out
}
