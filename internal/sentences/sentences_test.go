package sentences

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casecoach/backend/models"
)

func TestSplitOffsetsSliceOriginal(t *testing.T) {
	text := "Take a deep breath. Break the task into small steps! Does that help?"
	spans := Split(text)
	require.Len(t, spans, 3)

	for _, s := range spans {
		assert.Equal(t, s.Text, text[s.Start:s.End])
	}
	assert.Equal(t, "Take a deep breath.", spans[0].Text)
	assert.Equal(t, "Break the task into small steps!", spans[1].Text)
	assert.Equal(t, "Does that help?", spans[2].Text)
}

func TestSplitSpansSortedNonOverlapping(t *testing.T) {
	text := "One.  Two.\nThree."
	spans := Split(text)
	require.Len(t, spans, 3)

	prevEnd := 0
	for _, s := range spans {
		assert.GreaterOrEqual(t, s.Start, prevEnd)
		assert.Less(t, s.Start, s.End)
		prevEnd = s.End
	}

	c := models.Case{ID: 1, Response: text, ResponseSentences: spans}
	assert.NoError(t, c.Validate())
}

func TestSplitUnterminatedText(t *testing.T) {
	spans := Split("no punctuation at all")
	require.Len(t, spans, 1)
	assert.Equal(t, "no punctuation at all", spans[0].Text)
	assert.Equal(t, 0, spans[0].Start)
}

func TestSplitTrailingFragment(t *testing.T) {
	text := "Finished sentence. trailing fragment"
	spans := Split(text)
	require.Len(t, spans, 2)
	assert.Equal(t, "trailing fragment", spans[1].Text)
	assert.Equal(t, text[spans[1].Start:spans[1].End], spans[1].Text)
}

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split(""))
	assert.Empty(t, Split("   \n\t"))
}
