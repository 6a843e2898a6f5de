package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/casecoach/backend/middleware"
	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
	"github.com/casecoach/backend/services/retrieval"
	"github.com/casecoach/backend/utils"
)

// defaultK is the result count used when the request omits k.
const defaultK = 5

// SearchRequest represents a case search request
type SearchRequest struct {
	Query          string `json:"query" validate:"required"`
	K              int    `json:"k,omitempty" validate:"omitempty,gte=1,lte=50"`
	WithHighlights bool   `json:"with_highlights,omitempty"`
}

// SearchResponse represents the ranked search results
type SearchResponse struct {
	Results []models.SearchResult `json:"results"`
}

// SearchService defines the interface for case retrieval
type SearchService interface {
	Search(ctx context.Context, query string, k int, opts retrieval.Options) ([]models.SearchResult, error)
}

// SearchRecorder counts search requests for the status endpoint
type SearchRecorder interface {
	RecordSearch()
}

// SearchHandler handles case search HTTP requests
type SearchHandler struct {
	service  SearchService
	recorder SearchRecorder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(service SearchService, recorder SearchRecorder, timeout time.Duration, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		service:  service,
		recorder: recorder,
		timeout:  timeout,
		logger:   logger,
	}
}

// HandleSearch handles POST /api/v1/search
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	k := req.K
	if k == 0 {
		k = defaultK
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.recorder.RecordSearch()

	results, err := h.service.Search(ctx, req.Query, k, retrieval.Options{
		WithHighlights: req.WithHighlights,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = services.ErrSearchTimeout
		}
		h.logger.Error("search failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("search completed",
		zap.String("request_id", requestID),
		zap.Int("k", k),
		zap.Int("results", len(results)))

	if err := utils.WriteOK(w, SearchResponse{Results: results}); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
