package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services/indexstore"
	"github.com/casecoach/backend/utils"
)

// IndexStatus reports the lifecycle state of the index store
type IndexStatus interface {
	IsReady() bool
	State() indexstore.State
	PersistedIndexExists() bool
	Snapshot() (*indexstore.Snapshot, error)
}

// MetricsSource exposes the request counters for the status endpoint
type MetricsSource interface {
	Snapshot() map[string]int64
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse represents the operational status of the service
type StatusResponse struct {
	IndexState string                `json:"index_state"`
	Manifest   *models.IndexManifest `json:"manifest,omitempty"`
	Metrics    map[string]int64      `json:"metrics"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	index   IndexStatus
	metrics MetricsSource
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(index IndexStatus, metrics MetricsSource, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		index:   index,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Ready when the index store has a loaded snapshot, or when a persisted
// index exists on disk and no load attempt has rejected it.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	status := "ready"
	httpStatus := http.StatusOK

	state := h.index.State()
	switch {
	case h.index.IsReady():
		checks["index"] = "loaded"
	case state != indexstore.StateFailed && h.index.PersistedIndexExists():
		checks["index"] = "persisted"
	default:
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		switch {
		case state == indexstore.StateLoading:
			checks["index"] = "loading"
		case state == indexstore.StateFailed:
			checks["index"] = "load_failed"
		default:
			checks["index"] = "no_persisted_index"
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		IndexState: h.index.State().String(),
		Metrics:    h.metrics.Snapshot(),
	}

	if snap, err := h.index.Snapshot(); err == nil {
		manifest := snap.Manifest
		response.Manifest = &manifest
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write status response", zap.Error(err))
	}
}
