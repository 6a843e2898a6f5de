// Package indexstore owns the two vector indices (case contexts and case
// responses), the manifest describing the build, and the loaded corpus.
// Once READY the exposed snapshot is immutable and shared lock-free by
// concurrent requests; a rebuild produces a whole new snapshot that is
// swapped in atomically.
package indexstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/casecoach/backend/internal/vecindex"
	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
	"github.com/casecoach/backend/services/embedding"
)

// State is the lifecycle state of the store.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Persisted file names, kept stable so deployments can pre-build indices.
const (
	ManifestFile        = "index_manifest.json"
	ContextVectorsFile  = "context_vectors.json"
	ResponseVectorsFile = "response_vectors.json"
	CasesFile           = "cases.json"
)

// Snapshot is a consistent read-only view of one index generation.
type Snapshot struct {
	Manifest      models.IndexManifest
	ContextIndex  *vecindex.Index
	ResponseIndex *vecindex.Index
	Cases         []models.Case

	byID map[int]*models.Case
}

// Case looks up a case by ID within this generation.
func (s *Snapshot) Case(id int) (*models.Case, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Store manages persistence and lifecycle of the index generation.
type Store struct {
	indexDir  string
	casesPath string
	logger    *zap.Logger

	state    atomic.Int32
	snapshot atomic.Pointer[Snapshot]
	buildMu  sync.Mutex
}

// New creates a Store rooted at indexDir with the corpus file at casesPath.
func New(indexDir, casesPath string, logger *zap.Logger) *Store {
	return &Store{
		indexDir:  indexDir,
		casesPath: casesPath,
		logger:    logger,
	}
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	return State(s.state.Load())
}

// IsReady reports whether retrieval may be served.
func (s *Store) IsReady() bool {
	return s.State() == StateReady
}

// PersistedIndexExists reports whether a manifest and corpus exist on disk,
// used by readiness before the store has loaded.
func (s *Store) PersistedIndexExists() bool {
	if _, err := os.Stat(filepath.Join(s.indexDir, ManifestFile)); err != nil {
		return false
	}
	if _, err := os.Stat(s.casesPath); err != nil {
		return false
	}
	return true
}

// Snapshot returns the current immutable index generation, or not_ready
// when the store has not successfully loaded.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil || !s.IsReady() {
		return nil, services.NewDomainError(services.ErrorTypeNotReady, "index not ready", nil).
			WithDetail("state", s.State().String())
	}
	return snap, nil
}

// Case resolves a case ID against the current snapshot.
func (s *Store) Case(id int) (*models.Case, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	c, ok := snap.Case(id)
	if !ok {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, "case not found", nil).
			WithDetail("case_id", id)
	}
	return c, nil
}

// Load reads the persisted manifest, corpus, and vectors, verifies them
// against the runtime embedding provider, and transitions to READY. Any
// failure leaves the store FAILED and surfaces as not_ready: an
// incompatible or corrupt index is refused, never silently degraded.
func (s *Store) Load(ctx context.Context, provider embedding.Provider) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.state.Store(int32(StateLoading))
	snap, err := s.loadSnapshot(provider)
	if err != nil {
		s.state.Store(int32(StateFailed))
		s.logger.Error("index load failed",
			zap.String("index_dir", s.indexDir),
			zap.Error(err))
		return err
	}

	s.snapshot.Store(snap)
	s.state.Store(int32(StateReady))
	s.logger.Info("index loaded",
		zap.String("embedding_model", snap.Manifest.EmbeddingModel),
		zap.Int("vector_dimension", snap.Manifest.VectorDimension),
		zap.Int("case_count", snap.Manifest.CaseCount))
	return nil
}

func (s *Store) loadSnapshot(provider embedding.Provider) (*Snapshot, error) {
	var manifest models.IndexManifest
	if err := readJSON(filepath.Join(s.indexDir, ManifestFile), &manifest); err != nil {
		return nil, services.WrapNotReady("failed to read index manifest", err)
	}

	if err := manifest.CompatibleWith(provider.Model(), provider.Dimension()); err != nil {
		return nil, services.ErrIncompatibleIndex.WithDetail("mismatch", err.Error())
	}

	var cases []models.Case
	if err := readJSON(s.casesPath, &cases); err != nil {
		return nil, services.WrapNotReady("failed to read case corpus", err)
	}

	var contextVecs, responseVecs vectorFile
	if err := readJSON(filepath.Join(s.indexDir, ContextVectorsFile), &contextVecs); err != nil {
		return nil, services.WrapNotReady("failed to read context vectors", err)
	}
	if err := readJSON(filepath.Join(s.indexDir, ResponseVectorsFile), &responseVecs); err != nil {
		return nil, services.WrapNotReady("failed to read response vectors", err)
	}

	if len(cases) != manifest.CaseCount ||
		len(contextVecs.Vectors) != manifest.CaseCount ||
		len(responseVecs.Vectors) != manifest.CaseCount {
		return nil, services.ErrCorruptIndex.
			WithDetail("manifest_case_count", manifest.CaseCount).
			WithDetail("cases", len(cases)).
			WithDetail("context_vectors", len(contextVecs.Vectors)).
			WithDetail("response_vectors", len(responseVecs.Vectors))
	}

	for i := range cases {
		if err := cases[i].Validate(); err != nil {
			return nil, services.ErrCorruptIndex.WithDetail("case", err.Error())
		}
	}

	return newSnapshot(manifest, cases, contextVecs, responseVecs)
}

func newSnapshot(manifest models.IndexManifest, cases []models.Case, contextVecs, responseVecs vectorFile) (*Snapshot, error) {
	contextIndex, err := vecindex.Build(manifest.VectorDimension, contextVecs.CaseIDs, contextVecs.Vectors)
	if err != nil {
		return nil, services.ErrCorruptIndex.WithDetail("context_index", err.Error())
	}
	responseIndex, err := vecindex.Build(manifest.VectorDimension, responseVecs.CaseIDs, responseVecs.Vectors)
	if err != nil {
		return nil, services.ErrCorruptIndex.WithDetail("response_index", err.Error())
	}

	byID := make(map[int]*models.Case, len(cases))
	for i := range cases {
		if _, dup := byID[cases[i].ID]; dup {
			return nil, services.ErrCorruptIndex.WithDetail("duplicate_case_id", cases[i].ID)
		}
		byID[cases[i].ID] = &cases[i]
	}

	return &Snapshot{
		Manifest:      manifest,
		ContextIndex:  contextIndex,
		ResponseIndex: responseIndex,
		Cases:         cases,
		byID:          byID,
	}, nil
}

// vectorFile is the on-disk shape of one vector index: parallel id/vector
// slices in corpus order.
type vectorFile struct {
	CaseIDs []int       `json:"case_ids"`
	Vectors [][]float32 `json:"vectors"`
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
