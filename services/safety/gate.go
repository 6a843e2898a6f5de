// Package safety classifies queries and drafted answers. The gate never
// rewrites content; it only classifies, and a positive verdict is binding
// on the coaching orchestrator. A crisis verdict must be produced before
// any generation call is made.
package safety

import (
	"regexp"

	"go.uber.org/zap"
)

// QueryVerdict is the result of screening an incoming query.
type QueryVerdict struct {
	IsCrisis bool
	Reason   string
}

// AnswerVerdict is the result of screening a drafted answer.
type AnswerVerdict struct {
	IsUnsafe bool
	Reason   string
}

type pattern struct {
	re     *regexp.Regexp
	reason string
}

var crisisPatterns = []pattern{
	{regexp.MustCompile(`(?i)\bkill(ing)?\s+myself\b`), "self-harm intent"},
	{regexp.MustCompile(`(?i)\bsuicid(e|al)\b`), "suicidal language"},
	{regexp.MustCompile(`(?i)\bend(ing)?\s+my\s+(own\s+)?life\b`), "self-harm intent"},
	{regexp.MustCompile(`(?i)\b(want|wish(ing)?)\s+to\s+die\b`), "self-harm intent"},
	{regexp.MustCompile(`(?i)\bhurt(ing)?\s+myself\b`), "self-harm language"},
	{regexp.MustCompile(`(?i)\bself[-\s]?harm\b`), "self-harm language"},
	{regexp.MustCompile(`(?i)\bcut(ting)?\s+myself\b`), "self-harm language"},
	{regexp.MustCompile(`(?i)\bno\s+reason\s+(left\s+)?to\s+live\b`), "hopelessness with risk"},
	{regexp.MustCompile(`(?i)\bbetter\s+off\s+dead\b`), "hopelessness with risk"},
	{regexp.MustCompile(`(?i)\boverdos(e|ing)\b`), "overdose language"},
	{regexp.MustCompile(`(?i)\bdon'?t\s+want\s+to\s+(be\s+alive|live|wake\s+up)\b`), "self-harm intent"},
}

var unsafeAnswerPatterns = []pattern{
	{regexp.MustCompile(`(?i)\byou\s+(should|must|need\s+to)\s+(take|start|stop\s+taking)\s+\w+\s*(mg|milligrams?|pills?|medication|antidepressants?)`), "medication directive"},
	{regexp.MustCompile(`(?i)\b\d+\s*(mg|milligrams?)\b`), "dosage instruction"},
	{regexp.MustCompile(`(?i)\bstop\s+(taking\s+)?your\s+medication\b`), "medication directive"},
	{regexp.MustCompile(`(?i)\byou\s+(have|are\s+suffering\s+from)\s+(bipolar|schizophrenia|ptsd|adhd|clinical\s+depression|borderline)\b`), "diagnostic claim"},
	{regexp.MustCompile(`(?i)\bi\s+diagnose\b`), "diagnostic claim"},
	{regexp.MustCompile(`(?i)\byou\s+(should|must)\s+(sue|file\s+a\s+lawsuit|press\s+charges)\b`), "legal directive"},
	{regexp.MustCompile(`(?i)\bguaranteed?\s+(to\s+)?(cure|fix|heal)\b`), "outcome guarantee"},
	{regexp.MustCompile(`(?i)\bno\s+need\s+(to\s+see|for)\s+a\s+(doctor|therapist|professional)\b`), "discourages professional help"},
}

// Gate screens queries for crisis indicators and drafted answers for
// unsafe or prescriptive content.
type Gate struct {
	logger *zap.Logger
}

// New creates a safety gate.
func New(logger *zap.Logger) *Gate {
	return &Gate{logger: logger}
}

// CheckQuery screens a query for crisis-level self-harm or risk language.
// A positive verdict short-circuits the pipeline before any generation.
func (g *Gate) CheckQuery(query string) QueryVerdict {
	for _, p := range crisisPatterns {
		if p.re.MatchString(query) {
			g.logger.Warn("crisis indicator detected", zap.String("reason", p.reason))
			return QueryVerdict{IsCrisis: true, Reason: p.reason}
		}
	}
	return QueryVerdict{}
}

// CheckAnswer screens a drafted answer for unsafe or prescriptive content
// such as medical or legal directives. The query is available for context
// but current screening is answer-only.
func (g *Gate) CheckAnswer(draft, query string) AnswerVerdict {
	for _, p := range unsafeAnswerPatterns {
		if p.re.MatchString(draft) {
			g.logger.Warn("unsafe answer content detected", zap.String("reason", p.reason))
			return AnswerVerdict{IsUnsafe: true, Reason: p.reason}
		}
	}
	return AnswerVerdict{}
}
