package db

import (
	"github.com/markdave123-py/docingest/internal/core"
)

// DbClient is everything the service needs from Postgres: the chunk
// store, the metadata/status store, and shutdown.
type DbClient interface {
	core.VectorStore
	core.MetadataStore
	Close() error
}

var _ DbClient = (*DatabaseClient)(nil)
