package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/docingest/internal/api/handlers"
	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/docingest/internal/core/monitoring"
	"github.com/markdave123-py/docingest/internal/models"
)

type stubIngestor struct{}

func (stubIngestor) Ingest(_ context.Context, data []byte, _, _ string) *models.IngestionResult {
	return &models.IngestionResult{Success: true, Fingerprint: ingestion_engine.Fingerprint(data)}
}
func (stubIngestor) Start(context.Context, int) {}
func (stubIngestor) Wait()                      {}
func (stubIngestor) Enqueue(_ context.Context, job ingestion_engine.IngestJob) (string, error) {
	return ingestion_engine.Fingerprint(job.Data), nil
}

type stubDocs struct{ lastUser string }

func (d *stubDocs) Get(context.Context, string) (*models.DocumentMetadata, error) {
	return nil, models.ErrNotFound
}
func (d *stubDocs) Status(context.Context, string) (*models.ProcessingStatus, error) {
	return nil, models.ErrNotFound
}
func (d *stubDocs) ListByUser(_ context.Context, userID string) ([]models.DocumentMetadata, error) {
	d.lastUser = userID
	return []models.DocumentMetadata{}, nil
}
func (d *stubDocs) Delete(context.Context, string) error { return nil }

type okStore struct{}

func (okStore) AddDocuments(context.Context, []models.StorableDocument) error { return nil }
func (okStore) DeleteDocument(context.Context, string) error                  { return nil }
func (okStore) Health(context.Context) error                                  { return nil }

const secret = "test-secret"

func testRouter(t *testing.T, docs *stubDocs) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("key-123"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:          "0",
		JWTSecret:     secret,
		APIKeyHash:    string(hash),
		CORSOrigins:   []string{"http://localhost:5173"},
		IngestTimeout: time.Minute,
	}
	mon := monitoring.New(io.Discard)
	return newRouter(cfg,
		handlers.NewDocumentHandler(stubIngestor{}, docs, 1<<20),
		handlers.NewHealthHandler(okStore{}, "memory", "hash-384", mon),
		mon.Handler(),
	)
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r := testRouter(t, &stubDocs{})
	for _, path := range []string{"/api/health", "/api/metrics", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_DocumentsRequireAuth(t *testing.T) {
	docs := &stubDocs{}
	r := testRouter(t, docs)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", bearer(t, "user-7"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", docs.lastUser)

	req = httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("X-API-Key", "key-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "api-key", docs.lastUser)
}

func TestRouter_DocumentRoutes(t *testing.T) {
	r := testRouter(t, &stubDocs{})
	fp := strings.Repeat("a", 64)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/documents/" + fp, http.StatusNotFound},
		{http.MethodGet, "/api/documents/" + fp + "/status", http.StatusNotFound},
		{http.MethodDelete, "/api/documents/" + fp, http.StatusNoContent},
		{http.MethodGet, "/api/documents/XYZ", http.StatusBadRequest},
		{http.MethodPut, "/api/documents/" + fp, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", bearer(t, "u"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}
