package models

import (
	"fmt"
	"time"
)

// SentenceSpan is a sentence of a case response together with its character
// offsets into the owning response text.
type SentenceSpan struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Case is a stored counseling question/answer pair, the unit of retrievable
// evidence. Cases are created by the offline index build and are immutable
// once loaded into a corpus.
type Case struct {
	ID                int            `json:"id"`
	Context           string         `json:"context"`
	Response          string         `json:"response"`
	ResponseSentences []SentenceSpan `json:"response_sentences"`
}

// Validate checks the span invariants: every span must slice its owning
// response exactly, and spans must be sorted and non-overlapping.
func (c *Case) Validate() error {
	prevEnd := 0
	for i, s := range c.ResponseSentences {
		if s.Start < 0 || s.End > len(c.Response) || s.Start >= s.End {
			return fmt.Errorf("case %d: sentence %d has invalid offsets [%d:%d)", c.ID, i, s.Start, s.End)
		}
		if s.Start < prevEnd {
			return fmt.Errorf("case %d: sentence %d overlaps previous span", c.ID, i)
		}
		if c.Response[s.Start:s.End] != s.Text {
			return fmt.Errorf("case %d: sentence %d text does not match offsets", c.ID, i)
		}
		prevEnd = s.End
	}
	return nil
}

// Sentence returns the span at the given index, reporting whether it exists.
func (c *Case) Sentence(idx int) (SentenceSpan, bool) {
	if idx < 0 || idx >= len(c.ResponseSentences) {
		return SentenceSpan{}, false
	}
	return c.ResponseSentences[idx], true
}

// IndexManifest records the identity of a persisted index build. An index is
// loadable only when EmbeddingModel and VectorDimension match the runtime
// embedding provider exactly.
type IndexManifest struct {
	EmbeddingModel  string    `json:"embedding_model"`
	VectorDimension int       `json:"vector_dimension"`
	CaseCount       int       `json:"case_count"`
	BuildTimestamp  time.Time `json:"build_timestamp"`
}

// CompatibleWith reports whether the manifest matches the given provider
// identity. Any mismatch is a hard load failure, never a silent fallback.
func (m *IndexManifest) CompatibleWith(model string, dimension int) error {
	if m.EmbeddingModel != model {
		return fmt.Errorf("index built with model %q, runtime configured with %q", m.EmbeddingModel, model)
	}
	if m.VectorDimension != dimension {
		return fmt.Errorf("index vector dimension %d, provider dimension %d", m.VectorDimension, dimension)
	}
	return nil
}
