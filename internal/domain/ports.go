package domain

import "context"

// Embedder converts free text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// VectorIndex is the external similarity-search backend. Upsert is
// idempotent by record id; Query returns at most topK matches ordered
// by similarity score descending.
type VectorIndex interface {
	EnsureIndex(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, index string, records []VectorRecord) error
	Query(ctx context.Context, index string, vector []float64, topK int) ([]QueryMatch, error)
}

// Generator produces a single-turn text completion for a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
