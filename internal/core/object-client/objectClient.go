package objectclient

import (
	"github.com/markdave123-py/docingest/internal/core"
)

// S3Client is the archive for accepted raw uploads; any S3-compatible
// server (MinIO, localstack) works through S3_ENDPOINT.
var _ core.ObjectClient = (*S3Client)(nil)
