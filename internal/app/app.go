// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/markdave123-py/docingest/internal/api/handlers"
	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/core/cache"
	db "github.com/markdave123-py/docingest/internal/core/database"
	"github.com/markdave123-py/docingest/internal/core/extract"
	"github.com/markdave123-py/docingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/docingest/internal/core/llm"
	"github.com/markdave123-py/docingest/internal/core/monitoring"
	objectclient "github.com/markdave123-py/docingest/internal/core/object-client"
	"github.com/markdave123-py/docingest/internal/services"
	"github.com/markdave123-py/docingest/internal/watcher"
)

type App struct {
	DBClient     db.DbClient
	ObjectClient core.ObjectClient
	Cache        cache.Store
	DocProcessor ingestion_engine.Ingestor
	Monitor      *monitoring.Monitor
	Inbox        *watcher.Inbox // nil unless INBOX_DIR is set
	Server       *Server

	embedder io.Closer
}

func NewApp(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	policy, err := config.LoadFormatPolicy(cfg.FormatsFile)
	if err != nil {
		return nil, err
	}

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	log.Println("Database initialized and ready.")

	if cfg.S3ArchiveEnabled {
		objClient, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		a.ObjectClient = objClient
		log.Println("Object client initialized and ready.")
	}

	store, err := cache.New(cfg.CacheBackend, cfg.CachePath, cfg.CacheMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the cache, %w", err)
	}
	a.Cache = store

	provider, closer, err := llm.NewProvider(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	a.embedder = closer

	splitter, err := ingestion_engine.NewSentenceSplitter(cfg.SentenceSplitter)
	if err != nil {
		return nil, err
	}
	counter, err := ingestion_engine.NewTokenCounter(cfg.TokenCounter, cfg.TiktokenEncoding)
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(policy, extract.Options{OCREnabled: cfg.OCREnabled})
	if err != nil {
		return nil, err
	}

	a.Monitor = monitoring.New(os.Stdout)
	ingCfg := ingestion_engine.NewIngestConfig(cfg)

	docIngestor := ingestion_engine.NewDocumentIngestor(ingestion_engine.Deps{
		Validator:  ingestion_engine.NewContentValidator(cfg.MaxUploadBytes, policy),
		Extractor:  extractor,
		Chunker:    ingestion_engine.NewSemanticChunker(ingCfg.TargetTokens, ingCfg.OverlapTokens, splitter, counter),
		Embeddings: ingestion_engine.NewEmbeddingCache(a.Cache, a.Monitor, provider.Name(), ingCfg.EmbedCacheTTL),
		Encoder:    ingestion_engine.NewEmbeddingEncoder(provider, ingCfg.BatchSize, ingCfg.Concurrency),
		Store:      a.DBClient,
		Meta:       a.DBClient,
		Results:    a.Cache,
		Archive:    a.ObjectClient,
		Monitor:    a.Monitor,
	}, ingCfg, cfg.IngestQueue)
	a.DocProcessor = docIngestor

	docService := services.NewDocumentService(a.DBClient, a.DBClient, a.Cache, a.ObjectClient, ingCfg.ArchiveBucket)

	if cfg.InboxDir != "" {
		a.Inbox, err = watcher.NewInbox(cfg.InboxDir, docIngestor, cfg.MaxUploadBytes)
		if err != nil {
			return nil, err
		}
		log.Printf("Watching inbox %s", cfg.InboxDir)
	}

	a.Server = NewServer(cfg,
		handlers.NewDocumentHandler(docIngestor, docService, cfg.MaxUploadBytes),
		handlers.NewHealthHandler(a.DBClient, a.Cache.Name(), provider.Name(), a.Monitor),
		a.Monitor.Handler(),
	)
	return a, nil
}

// Close releases every client NewApp opened. It is safe on a partially
// built App.
func (a *App) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Printf("App: close cache: %v", err)
		}
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
