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
	"github.com/casecoach/backend/services/audit"
	"github.com/casecoach/backend/services/retrieval"
	"github.com/casecoach/backend/utils"
)

// CoachRequest represents a coaching request. CaseIDs restricts the evidence
// pool to the named cases; retrieval widens to the full corpus when the
// restricted pool yields too few results.
type CoachRequest struct {
	Query   string `json:"query" validate:"required"`
	K       int    `json:"k,omitempty" validate:"omitempty,gte=1,lte=50"`
	CaseIDs []int  `json:"case_ids,omitempty"`
}

// CaseSource resolves case IDs against the loaded corpus.
type CaseSource interface {
	Case(id int) (*models.Case, error)
}

// CoachService produces a grounded answer or a typed refusal from the query
// and its evidence cases.
type CoachService interface {
	Coach(ctx context.Context, query string, cases []models.Case) (*models.CoachResponse, error)
}

// CoachRecorder records coach outcomes for auditing
type CoachRecorder interface {
	RecordCoach(ctx context.Context, rec audit.CoachRecord)
}

// CoachHandler handles coaching HTTP requests
type CoachHandler struct {
	search   SearchService
	cases    CaseSource
	coach    CoachService
	recorder CoachRecorder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewCoachHandler creates a new CoachHandler
func NewCoachHandler(search SearchService, cases CaseSource, coach CoachService, recorder CoachRecorder, timeout time.Duration, logger *zap.Logger) *CoachHandler {
	return &CoachHandler{
		search:   search,
		cases:    cases,
		coach:    coach,
		recorder: recorder,
		timeout:  timeout,
		logger:   logger,
	}
}

// HandleCoach handles POST /api/v1/coach
func (h *CoachHandler) HandleCoach(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())
	started := time.Now()

	var req CoachRequest
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

	opts := retrieval.Options{}
	if len(req.CaseIDs) > 0 {
		opts.RestrictTo = make(map[int]struct{}, len(req.CaseIDs))
		for _, id := range req.CaseIDs {
			opts.RestrictTo[id] = struct{}{}
		}
	}

	results, err := h.search.Search(ctx, req.Query, k, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = services.ErrSearchTimeout
		}
		h.logger.Error("evidence retrieval failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	cases, err := h.resolveCases(results)
	if err != nil {
		h.logger.Error("failed to resolve evidence cases",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	resp, err := h.coach.Coach(ctx, req.Query, cases)
	if err != nil {
		h.logger.Error("coaching failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	caseIDs := make([]int, len(cases))
	for i, c := range cases {
		caseIDs[i] = c.ID
	}
	h.recorder.RecordCoach(r.Context(), audit.CoachRecord{
		Query:         req.Query,
		CaseIDs:       caseIDs,
		Refused:       resp.Refused,
		RefusalReason: resp.RefusalReason,
		CitationCount: len(resp.Citations),
		LatencyMs:     int(time.Since(started).Milliseconds()),
	})

	h.logger.Info("coach completed",
		zap.String("request_id", requestID),
		zap.Bool("refused", resp.Refused),
		zap.String("refusal_reason", resp.RefusalReason),
		zap.Int("citations", len(resp.Citations)),
		zap.Int("evidence_cases", len(cases)))

	if err := utils.WriteOK(w, resp); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// resolveCases maps retrieval results back to full cases, preserving rank
// order.
func (h *CoachHandler) resolveCases(results []models.SearchResult) ([]models.Case, error) {
	cases := make([]models.Case, 0, len(results))
	for _, res := range results {
		c, err := h.cases.Case(res.CaseID)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *c)
	}
	return cases, nil
}
