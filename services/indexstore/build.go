package indexstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
	"github.com/casecoach/backend/services/embedding"
)

// embedBatchSize bounds how many texts go to the provider per call.
const embedBatchSize = 64

// Build embeds every case context and response, persists vectors, manifest
// and corpus, and atomically swaps the in-memory snapshot to the new
// generation. Build is single-writer; concurrent readers keep the previous
// generation until the swap.
//
// Persistence is all-or-nothing: everything is written into a temporary
// directory next to the index directory and moved into place with a rename,
// so a crash mid-write never leaves a load-able but inconsistent manifest.
func (s *Store) Build(ctx context.Context, cases []models.Case, provider embedding.Provider) (*models.IndexManifest, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	for i := range cases {
		if err := cases[i].Validate(); err != nil {
			return nil, services.WrapError(services.ErrorTypeValidation, "invalid case in corpus", err)
		}
	}

	contexts := make([]string, len(cases))
	responses := make([]string, len(cases))
	ids := make([]int, len(cases))
	for i, c := range cases {
		contexts[i] = c.Context
		responses[i] = c.Response
		ids[i] = c.ID
	}

	s.logger.Info("embedding corpus",
		zap.Int("cases", len(cases)),
		zap.String("model", provider.Model()))

	contextVectors, err := embedAll(ctx, provider, contexts)
	if err != nil {
		return nil, err
	}
	responseVectors, err := embedAll(ctx, provider, responses)
	if err != nil {
		return nil, err
	}

	manifest := models.IndexManifest{
		EmbeddingModel:  provider.Model(),
		VectorDimension: provider.Dimension(),
		CaseCount:       len(cases),
		BuildTimestamp:  time.Now().UTC(),
	}

	if err := s.persist(manifest, cases, vectorFile{CaseIDs: ids, Vectors: contextVectors}, vectorFile{CaseIDs: ids, Vectors: responseVectors}); err != nil {
		return nil, services.WrapInternal("failed to persist index", err)
	}

	snap, err := newSnapshot(manifest, cases,
		vectorFile{CaseIDs: ids, Vectors: contextVectors},
		vectorFile{CaseIDs: ids, Vectors: responseVectors})
	if err != nil {
		return nil, err
	}

	s.snapshot.Store(snap)
	s.state.Store(int32(StateReady))
	s.logger.Info("index built",
		zap.Int("case_count", manifest.CaseCount),
		zap.Int("vector_dimension", manifest.VectorDimension))
	return &manifest, nil
}

func embedAll(ctx context.Context, provider embedding.Provider, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := provider.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// persist writes the new generation into <indexDir>.tmp, then replaces the
// index directory and corpus file with renames. The manifest travels inside
// the directory, so it is never visible alongside vectors from another
// generation.
func (s *Store) persist(manifest models.IndexManifest, cases []models.Case, contextVecs, responseVecs vectorFile) error {
	tmpDir := s.indexDir + ".tmp"
	if err := os.RemoveAll(tmpDir); err != nil {
		return err
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(tmpDir, ContextVectorsFile), contextVecs); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(tmpDir, ResponseVectorsFile), responseVecs); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(tmpDir, ManifestFile), manifest); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.casesPath), 0o755); err != nil {
		return err
	}
	casesTmp := s.casesPath + ".tmp"
	if err := writeJSON(casesTmp, cases); err != nil {
		return err
	}

	oldDir := s.indexDir + ".old"
	if err := os.RemoveAll(oldDir); err != nil {
		return err
	}
	if _, err := os.Stat(s.indexDir); err == nil {
		if err := os.Rename(s.indexDir, oldDir); err != nil {
			return err
		}
	}
	if err := os.Rename(tmpDir, s.indexDir); err != nil {
		return err
	}
	if err := os.Rename(casesTmp, s.casesPath); err != nil {
		return err
	}
	_ = os.RemoveAll(oldDir)
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
