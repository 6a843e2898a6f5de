package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/casecoach/backend/models"
)

// outputSchema constrains the generator's JSON reply before it is parsed.
const outputSchema = `{
  "type": "object",
  "required": ["answer_markdown", "citations"],
  "properties": {
    "answer_markdown": {"type": "string"},
    "citations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["case_id", "sent_id"],
        "properties": {
          "case_id": {"type": "integer"},
          "sent_id": {"type": "integer", "minimum": 0}
        }
      }
    },
    "refuse": {"type": "boolean"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(outputSchema)

// parseOutput validates raw generator output against the schema and decodes
// it. Model replies wrapped in markdown code fences are unwrapped first.
func parseOutput(raw string) (*models.SynthesisOutput, error) {
	raw = stripCodeFence(raw)

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("synthesis output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return nil, fmt.Errorf("synthesis output violates schema: %s", strings.Join(issues, "; "))
	}

	var out models.SynthesisOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode synthesis output: %w", err)
	}
	return &out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
