package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/docingest/internal/api/middlewares"
	"github.com/markdave123-py/docingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/docingest/internal/models"
	"github.com/markdave123-py/docingest/internal/services"
)

// DocumentQueries is the read and delete side of the document service.
type DocumentQueries interface {
	Get(ctx context.Context, fingerprint string) (*models.DocumentMetadata, error)
	Status(ctx context.Context, fingerprint string) (*models.ProcessingStatus, error)
	ListByUser(ctx context.Context, userID string) ([]models.DocumentMetadata, error)
	Delete(ctx context.Context, fingerprint string) error
}

type DocumentHandler struct {
	ingestor ingestion_engine.Ingestor
	docs     DocumentQueries
	maxBytes int64
}

func NewDocumentHandler(ing ingestion_engine.Ingestor, docs DocumentQueries, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{ingestor: ing, docs: docs, maxBytes: maxBytes}
}

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

var fingerprintRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// UploadDocument ingests the "file" form field. With ?async=true the
// upload is queued and answered with 202 and the fingerprint.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	filename := filepath.Base(header.Filename)
	userID := middleware.UserIDFromContext(r.Context())

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.enqueue(w, r, data, filename, userID)
		return
	}

	res := h.ingestor.Ingest(r.Context(), data, filename, userID)
	if !res.Success {
		status := http.StatusInternalServerError
		if res.Error != nil {
			status = res.Error.Kind.HTTPStatus()
		}
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type queuedResponse struct {
	Fingerprint string        `json:"fingerprint"`
	Status      models.Status `json:"status"`
}

func (h *DocumentHandler) enqueue(w http.ResponseWriter, r *http.Request, data []byte, filename, userID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	fp, err := h.ingestor.Enqueue(ctx, ingestion_engine.IngestJob{Data: data, FileName: filename, UserID: userID})
	if err != nil {
		log.Printf("DocumentHandler: enqueue %s: %v", filename, err)
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, queuedResponse{Fingerprint: fp, Status: models.StatusPending})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.ListByUser(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	fp, ok := fingerprintParam(w, r)
	if !ok {
		return
	}
	meta, err := h.docs.Get(r.Context(), fp)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *DocumentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	fp, ok := fingerprintParam(w, r)
	if !ok {
		return
	}
	st, err := h.docs.Status(r.Context(), fp)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	fp, ok := fingerprintParam(w, r)
	if !ok {
		return
	}
	if err := h.docs.Delete(r.Context(), fp); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func fingerprintParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	fp := chi.URLParam(r, "fingerprint")
	if !fingerprintRe.MatchString(fp) {
		writeError(w, http.StatusBadRequest, "fingerprint must be 64 lowercase hex characters")
		return "", false
	}
	return fp, true
}

func (h *DocumentHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, services.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("DocumentHandler: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
