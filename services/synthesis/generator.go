// Package synthesis wraps the bounded external generation call: a text
// generation invocation restricted to a fixed, small evidence context and
// the caller's time budget. The generator is never handed corpus content
// beyond the cases supplied to it.
package synthesis

import (
	"context"

	"github.com/casecoach/backend/models"
)

// Generator produces a draft answer with citations from the supplied
// evidence cases only. Implementations must respect ctx cancellation; the
// orchestrator enforces the time budget through it.
type Generator interface {
	Synthesize(ctx context.Context, query string, cases []models.Case) (*models.SynthesisOutput, error)
}
