package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casecoach/backend/middleware"
	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/utils"
)

// CaseSentence is one numbered sentence of a case response, addressable by
// citations.
type CaseSentence struct {
	SentID int    `json:"sent_id"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// CaseResponse represents a stored case with its citable sentences
type CaseResponse struct {
	ID        int            `json:"id"`
	Context   string         `json:"context"`
	Response  string         `json:"response"`
	Sentences []CaseSentence `json:"sentences"`
}

// CaseHandler handles case lookup HTTP requests
type CaseHandler struct {
	cases  CaseSource
	logger *zap.Logger
}

// NewCaseHandler creates a new CaseHandler
func NewCaseHandler(cases CaseSource, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{
		cases:  cases,
		logger: logger,
	}
}

// HandleGetCase handles GET /api/v1/cases/{id}
func (h *CaseHandler) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Case ID must be an integer", nil)
		return
	}

	c, err := h.cases.Case(id)
	if err != nil {
		h.logger.Warn("case lookup failed",
			zap.String("request_id", requestID),
			zap.Int("case_id", id),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, newCaseResponse(c)); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

func newCaseResponse(c *models.Case) CaseResponse {
	sents := make([]CaseSentence, len(c.ResponseSentences))
	for i, s := range c.ResponseSentences {
		sents[i] = CaseSentence{
			SentID: i,
			Text:   s.Text,
			Start:  s.Start,
			End:    s.End,
		}
	}
	return CaseResponse{
		ID:        c.ID,
		Context:   c.Context,
		Response:  c.Response,
		Sentences: sents,
	}
}
