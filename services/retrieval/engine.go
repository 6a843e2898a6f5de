// Package retrieval ranks corpus cases by semantic similarity to a query,
// optionally restricted to a caller-supplied case subset and optionally
// annotated with the most query-relevant response sentences.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/casecoach/backend/internal/vecindex"
	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
	"github.com/casecoach/backend/services/embedding"
	"github.com/casecoach/backend/services/indexstore"
)

// overfetchMultiplier sizes the candidate set queried from the index before
// restriction and deduplication truncate it back down to k.
const overfetchMultiplier = 4

// Options controls optional search behavior.
type Options struct {
	// RestrictTo limits results to the given case IDs. Unknown IDs simply
	// yield no matches; they are not an error.
	RestrictTo map[int]struct{}

	// WithHighlights attaches, per returned case, the response sentence
	// most similar to the query. Highlights never affect ranking.
	WithHighlights bool
}

// Engine performs similarity search over the current index generation.
type Engine struct {
	store    *indexstore.Store
	provider embedding.Provider
	logger   *zap.Logger
}

// New creates a retrieval engine bound to the store and embedding provider.
func New(store *indexstore.Store, provider embedding.Provider, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Search embeds the query once and returns up to k cases ordered by
// descending similarity, ties broken by ascending case ID.
func (e *Engine) Search(ctx context.Context, query string, k int, opts Options) ([]models.SearchResult, error) {
	if k < 1 {
		return nil, services.ErrInvalidK.WithDetail("k", k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, services.ErrEmptyQuery
	}

	snap, err := e.store.Snapshot()
	if err != nil {
		return nil, err
	}
	if len(snap.Cases) == 0 {
		return []models.SearchResult{}, nil
	}

	vectors, err := e.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVec := vectors[0]

	fetch := k * overfetchMultiplier
	if fetch > snap.ContextIndex.Len() {
		fetch = snap.ContextIndex.Len()
	}
	hits, err := snap.ContextIndex.Search(queryVec, fetch)
	if err != nil {
		return nil, services.WrapInternal("context index search failed", err)
	}

	selected := selectHits(hits, k, opts.RestrictTo)

	// A restricted over-fetch can come up short while matching cases still
	// exist deeper in the ranking; widen to the whole corpus before giving up.
	if opts.RestrictTo != nil && len(selected) < k && fetch < snap.ContextIndex.Len() {
		hits, err = snap.ContextIndex.Search(queryVec, snap.ContextIndex.Len())
		if err != nil {
			return nil, services.WrapInternal("context index search failed", err)
		}
		selected = selectHits(hits, k, opts.RestrictTo)
	}

	results := make([]models.SearchResult, 0, len(selected))
	for _, h := range selected {
		c, ok := snap.Case(h.ID)
		if !ok {
			continue
		}
		results = append(results, models.SearchResult{
			CaseID:   c.ID,
			Context:  c.Context,
			Response: c.Response,
			Score:    h.Score,
		})
	}

	if opts.WithHighlights {
		if err := e.attachHighlights(ctx, snap, queryVec, results); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("search complete",
		zap.Int("k", k),
		zap.Int("results", len(results)),
		zap.Bool("restricted", opts.RestrictTo != nil))
	return results, nil
}

// selectHits filters to the restriction set, deduplicates by case ID keeping
// the best score, re-sorts deterministically, and truncates to k.
func selectHits(hits []vecindex.Hit, k int, restrictTo map[int]struct{}) []vecindex.Hit {
	best := make(map[int]float32, len(hits))
	for _, h := range hits {
		if restrictTo != nil {
			if _, ok := restrictTo[h.ID]; !ok {
				continue
			}
		}
		if prev, seen := best[h.ID]; !seen || h.Score > prev {
			best[h.ID] = h.Score
		}
	}

	out := make([]vecindex.Hit, 0, len(best))
	for id, score := range best {
		out = append(out, vecindex.Hit{ID: id, Score: score})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ID < out[b].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// attachHighlights re-embeds the response sentences of the returned cases
// and marks, per case, the sentence most similar to the query.
func (e *Engine) attachHighlights(ctx context.Context, snap *indexstore.Snapshot, queryVec []float32, results []models.SearchResult) error {
	var texts []string
	type ref struct {
		result int
		sentID int
	}
	var refs []ref
	for i, r := range results {
		c, ok := snap.Case(r.CaseID)
		if !ok {
			continue
		}
		for sentID, span := range c.ResponseSentences {
			texts = append(texts, span.Text)
			refs = append(refs, ref{result: i, sentID: sentID})
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return err
	}

	q := vecindex.Normalize(queryVec)
	for j, vec := range vectors {
		score := vecindex.Dot(vecindex.Normalize(vec), q)
		r := &results[refs[j].result]
		if len(r.Highlights) == 0 || score > r.Highlights[0].Score {
			c, _ := snap.Case(r.CaseID)
			span, _ := c.Sentence(refs[j].sentID)
			r.Highlights = []models.Highlight{{
				SentID: refs[j].sentID,
				Text:   span.Text,
				Score:  score,
			}}
		}
	}
	return nil
}
