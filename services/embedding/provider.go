// Package embedding maps text to fixed-dimension vectors. A provider is a
// pure function of (model identity, text): the same text under the same
// model always yields a bit-identical vector, and batching never changes
// results.
package embedding

import "context"

// Provider converts free text into numeric vector representations.
type Provider interface {
	// Model returns the identity of the loaded embedding model.
	Model() string

	// Dimension returns the dimensionality of produced vectors.
	Dimension() int

	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
