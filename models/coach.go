package models

// Refusal reasons produced by the coaching decision procedure. A refusal is a
// successful business outcome, not an error.
const (
	RefusalCrisis     = "crisis"
	RefusalNoEvidence = "no_evidence"
	RefusalUngrounded = "ungrounded_or_incomplete"
	RefusalUnsafe     = "unsafe_content"
)

// Highlight marks a response sentence of a returned case as the most
// query-relevant, for UI emphasis. It never affects ranking.
type Highlight struct {
	SentID int     `json:"sent_id"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
}

// SearchResult is a case returned from retrieval with its similarity score.
// Scores are cosine similarities in [-1, 1] and are comparable only within
// one index generation.
type SearchResult struct {
	CaseID     int         `json:"case_id"`
	Context    string      `json:"context"`
	Response   string      `json:"response"`
	Score      float32     `json:"score"`
	Highlights []Highlight `json:"highlights,omitempty"`
}

// Citation points at one sentence of one case's response.
type Citation struct {
	CaseID int `json:"case_id"`
	SentID int `json:"sent_id"`
}

// SynthesisOutput is the raw, unvalidated product of the bounded generation
// call. Citations are validated against the supplied cases before delivery.
type SynthesisOutput struct {
	AnswerMarkdown string     `json:"answer_markdown"`
	Citations      []Citation `json:"citations"`
	Refuse         bool       `json:"refuse,omitempty"`
}

// CoachResponse is the final outcome of a coach call: either a grounded
// answer with validated citations, or a typed refusal.
//
// Invariant: Refused implies AnswerMarkdown is empty and Citations is empty;
// otherwise every citation resolves to an existing sentence of a case that
// was supplied to the call.
type CoachResponse struct {
	AnswerMarkdown string     `json:"answer_markdown,omitempty"`
	Citations      []Citation `json:"citations"`
	Refused        bool       `json:"refused"`
	RefusalReason  string     `json:"refusal_reason,omitempty"`
}

// Refuse builds a refusal response satisfying the CoachResponse invariant.
func Refuse(reason string) *CoachResponse {
	return &CoachResponse{
		Citations:     []Citation{},
		Refused:       true,
		RefusalReason: reason,
	}
}
