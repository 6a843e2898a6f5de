package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderDeterminism(t *testing.T) {
	p := NewLocalProvider(64)

	texts := []string{
		"feeling anxious about exams",
		"I can't sleep before tests",
		"",
	}

	first, err := p.Embed(context.Background(), texts)
	require.NoError(t, err)
	second, err := p.Embed(context.Background(), texts)
	require.NoError(t, err)

	// Bit-identical vectors on repeat calls.
	for i := range texts {
		assert.Equal(t, first[i], second[i])
	}
}

func TestLocalProviderBatchingDoesNotChangeResults(t *testing.T) {
	p := NewLocalProvider(64)

	batch, err := p.Embed(context.Background(), []string{"hello world", "goodbye"})
	require.NoError(t, err)

	one, err := p.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	two, err := p.Embed(context.Background(), []string{"goodbye"})
	require.NoError(t, err)

	assert.Equal(t, batch[0], one[0])
	assert.Equal(t, batch[1], two[0])
}

func TestLocalProviderDimension(t *testing.T) {
	p := NewLocalProvider(128)
	assert.Equal(t, 128, p.Dimension())

	vecs, err := p.Embed(context.Background(), []string{"a sentence"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 128)

	// Clamped to the default when too small.
	assert.Equal(t, 256, NewLocalProvider(1).Dimension())
}

func TestLocalProviderSimilarTextsCloser(t *testing.T) {
	p := NewLocalProvider(256)
	vecs, err := p.Embed(context.Background(), []string{
		"anxious about my exams",
		"I am anxious about exams tomorrow",
		"my dog enjoys long walks",
	})
	require.NoError(t, err)

	simNear := dot(vecs[0], vecs[1])
	simFar := dot(vecs[0], vecs[2])
	assert.Greater(t, simNear, simFar)
}

func TestLocalProviderEmptyInput(t *testing.T) {
	p := NewLocalProvider(64)
	vecs, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
