package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/casecoach/backend/internal/dataset"
	"github.com/casecoach/backend/middleware"
	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
	"github.com/casecoach/backend/services/embedding"
	"github.com/casecoach/backend/utils"
)

// IndexBuilder rebuilds the persisted index from a case corpus
type IndexBuilder interface {
	Build(ctx context.Context, cases []models.Case, provider embedding.Provider) (*models.IndexManifest, error)
}

// ReindexResponse reports the outcome of a rebuild
type ReindexResponse struct {
	Manifest *models.IndexManifest `json:"manifest"`
}

// AdminHandler handles privileged operational endpoints
type AdminHandler struct {
	builder    IndexBuilder
	provider   embedding.Provider
	sourcePath string
	logger     *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(builder IndexBuilder, provider embedding.Provider, sourcePath string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		builder:    builder,
		provider:   provider,
		sourcePath: sourcePath,
		logger:     logger,
	}
}

// HandleReindex handles POST /api/v1/admin/reindex. The rebuild runs
// synchronously; in-flight searches keep serving the previous snapshot until
// the swap.
func (h *AdminHandler) HandleReindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	h.logger.Info("reindex requested",
		zap.String("request_id", requestID),
		zap.String("source", h.sourcePath))

	cases, err := dataset.Load(h.sourcePath)
	if err != nil {
		h.logger.Error("failed to load source dataset",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, services.WrapInternal("failed to load source dataset", err), h.logger)
		return
	}

	manifest, err := h.builder.Build(ctx, cases, h.provider)
	if err != nil {
		h.logger.Error("index rebuild failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("index rebuilt",
		zap.String("request_id", requestID),
		zap.Int("cases", manifest.CaseCount),
		zap.String("model", manifest.EmbeddingModel),
		zap.Int("dimension", manifest.VectorDimension))

	if err := utils.WriteOK(w, ReindexResponse{Manifest: manifest}); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
