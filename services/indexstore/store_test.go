package indexstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casecoach/backend/internal/sentences"
	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
	"github.com/casecoach/backend/services/embedding"
)

func testCases() []models.Case {
	mk := func(id int, ctx, resp string) models.Case {
		return models.Case{
			ID:                id,
			Context:           ctx,
			Response:          resp,
			ResponseSentences: sentences.Split(resp),
		}
	}
	return []models.Case{
		mk(1, "I am anxious about my upcoming exams", "Try a study schedule. Rest matters too."),
		mk(2, "I feel nervous before tests", "Practice deep breathing. Arrive early to settle in."),
		mk(3, "My mind goes blank during exams", "Blanking is common under stress. Slow down and re-read the question."),
	}
}

func newTestStore(t *testing.T) (*Store, embedding.Provider) {
	t.Helper()
	dir := t.TempDir()
	store := New(filepath.Join(dir, "indices"), filepath.Join(dir, "cases.json"), zap.NewNop())
	return store, embedding.NewLocalProvider(64)
}

func TestStoreStartsUninitialized(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Equal(t, StateUninitialized, store.State())
	assert.False(t, store.IsReady())

	_, err := store.Snapshot()
	assert.True(t, services.IsNotReadyError(err))
}

func TestBuildThenSnapshot(t *testing.T) {
	store, provider := newTestStore(t)

	manifest, err := store.Build(context.Background(), testCases(), provider)
	require.NoError(t, err)
	assert.Equal(t, provider.Model(), manifest.EmbeddingModel)
	assert.Equal(t, provider.Dimension(), manifest.VectorDimension)
	assert.Equal(t, 3, manifest.CaseCount)

	require.True(t, store.IsReady())
	snap, err := store.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Cases, 3)
	assert.Equal(t, 3, snap.ContextIndex.Len())
	assert.Equal(t, 3, snap.ResponseIndex.Len())

	c, ok := snap.Case(2)
	require.True(t, ok)
	assert.Equal(t, "I feel nervous before tests", c.Context)

	_, ok = snap.Case(99)
	assert.False(t, ok)
}

func TestBuildLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	indexDir := filepath.Join(dir, "indices")
	casesPath := filepath.Join(dir, "cases.json")
	provider := embedding.NewLocalProvider(64)

	first := New(indexDir, casesPath, zap.NewNop())
	_, err := first.Build(context.Background(), testCases(), provider)
	require.NoError(t, err)
	firstSnap, err := first.Snapshot()
	require.NoError(t, err)

	// Fresh store, as in a process restart.
	second := New(indexDir, casesPath, zap.NewNop())
	assert.True(t, second.PersistedIndexExists())
	require.NoError(t, second.Load(context.Background(), provider))
	require.True(t, second.IsReady())

	secondSnap, err := second.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, firstSnap.Manifest.EmbeddingModel, secondSnap.Manifest.EmbeddingModel)
	assert.Equal(t, firstSnap.Manifest.CaseCount, secondSnap.Manifest.CaseCount)

	// Identical search output across restart for a fixed query.
	probe, err := provider.Embed(context.Background(), []string{"anxious about exams"})
	require.NoError(t, err)
	h1, err := firstSnap.ContextIndex.Search(probe[0], 3)
	require.NoError(t, err)
	h2, err := secondSnap.ContextIndex.Search(probe[0], 3)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestLoadIncompatibleModel(t *testing.T) {
	dir := t.TempDir()
	indexDir := filepath.Join(dir, "indices")
	casesPath := filepath.Join(dir, "cases.json")

	builder := New(indexDir, casesPath, zap.NewNop())
	_, err := builder.Build(context.Background(), testCases(), embedding.NewLocalProvider(64))
	require.NoError(t, err)

	// Same model name, different dimension.
	loader := New(indexDir, casesPath, zap.NewNop())
	err = loader.Load(context.Background(), embedding.NewLocalProvider(128))
	require.Error(t, err)
	assert.True(t, services.IsNotReadyError(err))
	assert.Equal(t, StateFailed, loader.State())

	_, err = loader.Snapshot()
	assert.True(t, services.IsNotReadyError(err))
}

func TestLoadCorruptCaseCount(t *testing.T) {
	dir := t.TempDir()
	indexDir := filepath.Join(dir, "indices")
	casesPath := filepath.Join(dir, "cases.json")
	provider := embedding.NewLocalProvider(64)

	builder := New(indexDir, casesPath, zap.NewNop())
	_, err := builder.Build(context.Background(), testCases(), provider)
	require.NoError(t, err)

	// Truncate the corpus so counts disagree with the manifest.
	require.NoError(t, os.WriteFile(casesPath, []byte(`[]`), 0o644))

	loader := New(indexDir, casesPath, zap.NewNop())
	err = loader.Load(context.Background(), provider)
	require.Error(t, err)
	assert.True(t, services.IsNotReadyError(err))
	assert.Equal(t, StateFailed, loader.State())
}

func TestLoadMissingManifest(t *testing.T) {
	store, provider := newTestStore(t)
	assert.False(t, store.PersistedIndexExists())

	err := store.Load(context.Background(), provider)
	require.Error(t, err)
	assert.True(t, services.IsNotReadyError(err))
}

func TestRebuildSwapsSnapshotAtomically(t *testing.T) {
	store, provider := newTestStore(t)

	_, err := store.Build(context.Background(), testCases(), provider)
	require.NoError(t, err)
	before, err := store.Snapshot()
	require.NoError(t, err)

	smaller := testCases()[:2]
	_, err = store.Build(context.Background(), smaller, provider)
	require.NoError(t, err)

	after, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, after.Manifest.CaseCount)

	// The previous generation is untouched: readers that captured it keep
	// a complete, consistent view.
	assert.Equal(t, 3, before.Manifest.CaseCount)
	assert.Len(t, before.Cases, 3)
}

func TestBuildRejectsInvalidCase(t *testing.T) {
	store, provider := newTestStore(t)

	bad := []models.Case{{
		ID:       1,
		Response: "short",
		ResponseSentences: []models.SentenceSpan{
			{Text: "mismatch", Start: 0, End: 8},
		},
	}}
	_, err := store.Build(context.Background(), bad, provider)
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
	assert.False(t, store.IsReady())
}
