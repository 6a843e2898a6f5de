package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/casecoach/backend/internal/vecindex"
)

const localModelName = "local-hash-v1"

var tokenPattern = regexp.MustCompile(`[a-z0-9']+`)

// LocalProvider is a deterministic feature-hashing embedder: each token is
// hashed into one of Dimension buckets and the resulting count vector is
// L2-normalized. It needs no network or model files, which makes it usable
// for development and as the fixture provider in tests. Determinism holds
// bit-for-bit across processes.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a hashing embedder with the given dimension.
// Dimensions below 8 are clamped to the default of 256.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension < 8 {
		dimension = 256
	}
	return &LocalProvider{dimension: dimension}
}

// Model returns the local model identity.
func (p *LocalProvider) Model() string { return localModelName }

// Dimension returns the configured vector dimension.
func (p *LocalProvider) Dimension() int { return p.dimension }

// Embed hashes each text independently; the context is accepted for
// interface symmetry and is never blocked on.
func (p *LocalProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = p.embedOne(t)
	}
	return vectors, nil
}

func (p *LocalProvider) embedOne(text string) []float32 {
	v := make([]float32, p.dimension)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := int(h.Sum32()) % p.dimension
		if bucket < 0 {
			bucket += p.dimension
		}
		// Sign hash decorrelates buckets, the usual hashing trick.
		if h.Sum32()&1 == 0 {
			v[bucket]++
		} else {
			v[bucket]--
		}
	}
	return vecindex.Normalize(v)
}
