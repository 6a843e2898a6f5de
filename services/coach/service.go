// Package coach composes retrieval evidence, the safety gate, the bounded
// generation call, and citation validation into a single decision
// procedure: a grounded answer or a typed refusal. The step order is a
// fixed protocol (safety before generation, evidence before generation,
// validation before delivery) and later steps assume earlier ones passed.
package coach

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
	"github.com/casecoach/backend/services/safety"
	"github.com/casecoach/backend/services/synthesis"
)

// Service is the coaching orchestrator.
type Service struct {
	gate      *safety.Gate
	generator synthesis.Generator
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates the orchestrator. timeout bounds the generation call; zero
// means no bound beyond the caller's context.
func New(gate *safety.Gate, generator synthesis.Generator, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		gate:      gate,
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}
}

// Coach runs the decision procedure over the supplied evidence cases.
// Business refusals are returned as a normal CoachResponse; pipeline
// failures (generation error, timeout) are returned as errors so callers
// can tell "the gate decided no" apart from "the pipeline could not
// complete".
func (s *Service) Coach(ctx context.Context, query string, cases []models.Case) (*models.CoachResponse, error) {
	// Step 1: crisis screening, before anything else touches the generator.
	if v := s.gate.CheckQuery(query); v.IsCrisis {
		s.logger.Info("coach refused", zap.String("reason", models.RefusalCrisis))
		return models.Refuse(models.RefusalCrisis), nil
	}

	// Step 2: the evidence gate. No grounding material, no generation.
	if len(cases) == 0 {
		s.logger.Info("coach refused", zap.String("reason", models.RefusalNoEvidence))
		return models.Refuse(models.RefusalNoEvidence), nil
	}

	// Steps 3-4: bounded generation restricted to the supplied cases.
	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := s.generator.Synthesize(genCtx, query, cases)
	if err != nil {
		if services.IsTimeoutError(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, services.ErrGenerationTimeout
		}
		return nil, err
	}

	// Step 5: citation validation against the supplied cases only.
	valid := validateCitations(out.Citations, cases)
	dropped := len(out.Citations) - len(valid)
	if dropped > 0 {
		s.logger.Warn("dropped invalid citations", zap.Int("dropped", dropped))
	}
	if out.Refuse || strings.TrimSpace(out.AnswerMarkdown) == "" || len(valid) == 0 {
		s.logger.Info("coach refused", zap.String("reason", models.RefusalUngrounded))
		return models.Refuse(models.RefusalUngrounded), nil
	}

	// Step 6: screen the surviving draft.
	if v := s.gate.CheckAnswer(out.AnswerMarkdown, query); v.IsUnsafe {
		s.logger.Info("coach refused",
			zap.String("reason", models.RefusalUnsafe),
			zap.String("detail", v.Reason))
		return models.Refuse(models.RefusalUnsafe), nil
	}

	// Step 7: deliver the grounded answer.
	return &models.CoachResponse{
		AnswerMarkdown: out.AnswerMarkdown,
		Citations:      valid,
		Refused:        false,
	}, nil
}

// validateCitations keeps only citations whose case ID is among the
// supplied cases and whose sentence index exists in that case's response
// sentences. Invalid citations are dropped, never silently kept.
func validateCitations(citations []models.Citation, cases []models.Case) []models.Citation {
	byID := make(map[int]*models.Case, len(cases))
	for i := range cases {
		byID[cases[i].ID] = &cases[i]
	}

	valid := make([]models.Citation, 0, len(citations))
	seen := make(map[models.Citation]struct{}, len(citations))
	for _, cit := range citations {
		c, ok := byID[cit.CaseID]
		if !ok {
			continue
		}
		if _, ok := c.Sentence(cit.SentID); !ok {
			continue
		}
		if _, dup := seen[cit]; dup {
			continue
		}
		seen[cit] = struct{}{}
		valid = append(valid, cit)
	}
	return valid
}
