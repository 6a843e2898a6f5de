// Package sentences splits answer text into sentence spans with character
// offsets into the original string, so citations can point at exact
// sub-ranges of a stored response.
package sentences

import (
	"regexp"

	"github.com/casecoach/backend/models"
)

var terminated = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+)`)

// Split segments text into sentence spans. Each span satisfies
// text[span.Start:span.End] == span.Text, spans are sorted by Start and
// never overlap. Text without a terminating punctuation mark yields a
// single span covering its trimmed content.
func Split(text string) []models.SentenceSpan {
	var spans []models.SentenceSpan
	last := 0
	for _, loc := range terminated.FindAllStringIndex(text, -1) {
		if span, ok := trimSpan(text, loc[0], loc[1]); ok {
			spans = append(spans, span)
		}
		last = loc[1]
	}
	// Trailing fragment with no terminator.
	if span, ok := trimSpan(text, last, len(text)); ok {
		spans = append(spans, span)
	}
	return spans
}

// trimSpan narrows [start,end) to exclude surrounding whitespace and
// reports whether anything remains.
func trimSpan(text string, start, end int) (models.SentenceSpan, bool) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	if start >= end {
		return models.SentenceSpan{}, false
	}
	return models.SentenceSpan{
		Text:  text[start:end],
		Start: start,
		End:   end,
	}, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
