// Package dataset reads the raw counseling source corpus and prepares it for
// indexing: assigning IDs, segmenting responses into sentence spans, and
// rejecting malformed records.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/casecoach/backend/internal/sentences"
	"github.com/casecoach/backend/models"
)

// sourceRecord is one entry of the raw dataset file. ID is optional; records
// without one are numbered by position.
type sourceRecord struct {
	ID       *int   `json:"id,omitempty"`
	Context  string `json:"context"`
	Response string `json:"response"`
}

// Load reads a JSON array of question/answer records from path and returns
// them as validated cases with segmented response sentences.
func Load(path string) ([]models.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return Parse(data)
}

// Parse converts raw dataset bytes into validated cases.
func Parse(data []byte) ([]models.Case, error) {
	var records []sourceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset contains no records")
	}

	cases := make([]models.Case, 0, len(records))
	seen := make(map[int]struct{}, len(records))
	for i, rec := range records {
		id := i
		if rec.ID != nil {
			id = *rec.ID
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("record %d: duplicate case id %d", i, id)
		}
		seen[id] = struct{}{}

		context := strings.TrimSpace(rec.Context)
		response := strings.TrimSpace(rec.Response)
		if context == "" {
			return nil, fmt.Errorf("record %d: empty context", i)
		}
		if response == "" {
			return nil, fmt.Errorf("record %d: empty response", i)
		}

		c := models.Case{
			ID:                id,
			Context:           context,
			Response:          response,
			ResponseSentences: sentences.Split(response),
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		cases = append(cases, c)
	}
	return cases, nil
}
