package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/core/monitoring"
)

// Snapshotter exposes the monitor counters.
type Snapshotter interface {
	Snapshot() monitoring.Snapshot
}

type HealthHandler struct {
	store   core.VectorStore
	cache   string
	encoder string
	metrics Snapshotter
}

func NewHealthHandler(store core.VectorStore, cacheName, encoderName string, metrics Snapshotter) *HealthHandler {
	return &HealthHandler{store: store, cache: cacheName, encoder: encoderName, metrics: metrics}
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Cache   string `json:"cache"`
	Encoder string `json:"encoder"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Storage: "ok", Cache: h.cache, Encoder: h.encoder}
	if err := h.store.Health(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Storage = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Metrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}
