package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why an ingestion failed.
type ErrorKind string

const (
	KindFileTooLarge      ErrorKind = "FileTooLarge"
	KindUnsupportedFormat ErrorKind = "UnsupportedFormat"
	KindMimeMismatch      ErrorKind = "MimeMismatch"
	KindSuspiciousContent ErrorKind = "SuspiciousContent"
	KindExtractionFailed  ErrorKind = "ExtractionFailed"
	KindEncodingFailed    ErrorKind = "EncodingFailed"
	KindStorageFailed     ErrorKind = "StorageFailed"
	KindCacheUnavailable  ErrorKind = "CacheUnavailable"
	KindInternal          ErrorKind = "Internal"
)

// Sentinel errors, one per kind, so callers can use errors.Is.
var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrMimeMismatch      = errors.New("mime type does not match extension")
	ErrSuspiciousContent = errors.New("suspicious content")
	ErrExtractionFailed  = errors.New("no text could be extracted")
	ErrEncodingFailed    = errors.New("embedding failed")
	ErrStorageFailed     = errors.New("storage failed")

	// ErrCacheUnavailable never leaves the cache layer; lookups degrade to misses.
	ErrCacheUnavailable = errors.New("cache unavailable")

	ErrNotFound = errors.New("not found")
)

var kindSentinels = map[ErrorKind]error{
	KindFileTooLarge:      ErrFileTooLarge,
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindMimeMismatch:      ErrMimeMismatch,
	KindSuspiciousContent: ErrSuspiciousContent,
	KindExtractionFailed:  ErrExtractionFailed,
	KindEncodingFailed:    ErrEncodingFailed,
	KindStorageFailed:     ErrStorageFailed,
	KindCacheUnavailable:  ErrCacheUnavailable,
}

// IngestError is the structured failure carried by IngestionResult.
type IngestError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Reasons []string  `json:"reasons,omitempty"`
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, ErrFileTooLarge) match an *IngestError of that kind.
func (e *IngestError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// NewIngestError builds an IngestError from a kind and an underlying cause.
func NewIngestError(kind ErrorKind, err error, reasons ...string) *IngestError {
	msg := string(kind)
	if err != nil {
		msg = err.Error()
	}
	return &IngestError{Kind: kind, Message: msg, Reasons: reasons}
}

// Retryable reports whether the same upload may succeed on a later attempt.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindEncodingFailed, KindStorageFailed, KindInternal:
		return true
	}
	return false
}

// HTTPStatus maps a kind to the status code the upload API answers with.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUnsupportedFormat, KindMimeMismatch, KindSuspiciousContent:
		return http.StatusBadRequest
	case KindExtractionFailed:
		return http.StatusUnprocessableEntity
	case KindEncodingFailed, KindStorageFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
