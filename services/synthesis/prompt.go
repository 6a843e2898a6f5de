package synthesis

import (
	"fmt"
	"strings"

	"github.com/casecoach/backend/models"
)

const systemPrompt = `You are a peer-support coach. Answer the user's question using ONLY the
evidence cases provided. Every claim must be supported by the cases. Respond
with a single JSON object:
{"answer_markdown": "...", "citations": [{"case_id": N, "sent_id": N}], "refuse": false}
Each citation names a case and the zero-based index of a sentence in that
case's response. If the cases do not contain enough material to answer,
respond with {"answer_markdown": "", "citations": [], "refuse": true}.
Do not give medical, legal, or medication directives.`

// buildUserPrompt renders the evidence block: only the supplied cases'
// context, response, and numbered response sentences.
func buildUserPrompt(query string, cases []models.Case) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nEvidence cases:\n")
	for _, c := range cases {
		fmt.Fprintf(&b, "\n[case %d]\n", c.ID)
		fmt.Fprintf(&b, "situation: %s\n", c.Context)
		b.WriteString("response sentences:\n")
		for i, s := range c.ResponseSentences {
			fmt.Fprintf(&b, "  (%d) %s\n", i, s.Text)
		}
	}
	return b.String()
}
