package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"feedrag/internal/domain"
)

// stubEmbedder returns deterministic vectors and can be told to fail
// on texts containing a marker substring.
type stubEmbedder struct {
	dim    int
	failOn string
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	s.calls++
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}
	vec := make([]float64, s.dim)
	vec[0] = float64(len(text))
	return vec, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

// fakeIndex records upserts per index and serves canned query results.
type fakeIndex struct {
	ensured  map[string]int
	upserts  map[string][][]domain.VectorRecord
	results  map[string][]domain.QueryMatch
	queryErr map[string]error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		ensured:  make(map[string]int),
		upserts:  make(map[string][][]domain.VectorRecord),
		results:  make(map[string][]domain.QueryMatch),
		queryErr: make(map[string]error),
	}
}

func (f *fakeIndex) EnsureIndex(_ context.Context, name string, dimension int) error {
	f.ensured[name] = dimension
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, index string, records []domain.VectorRecord) error {
	batch := make([]domain.VectorRecord, len(records))
	copy(batch, records)
	f.upserts[index] = append(f.upserts[index], batch)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, index string, _ []float64, _ int) ([]domain.QueryMatch, error) {
	if err := f.queryErr[index]; err != nil {
		return nil, err
	}
	return f.results[index], nil
}

func (f *fakeIndex) records(index string) []domain.VectorRecord {
	var all []domain.VectorRecord
	for _, batch := range f.upserts[index] {
		all = append(all, batch...)
	}
	return all
}

// stubGenerator captures the prompt and returns a fixed answer.
type stubGenerator struct {
	answer string
	err    error
	prompt string
}

func (g *stubGenerator) Complete(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func chunkMeta(label, unid string, pos, total int, text string) domain.QueryMatch {
	return domain.QueryMatch{
		ID:    fmt.Sprintf("%s_chunk%d", unid, pos),
		Score: 0,
		Metadata: map[string]any{
			"unid":        unid,
			"text":        text,
			"chunk_index": float64(pos),
			"chunk_total": float64(total),
			"source":      label,
		},
		SourceIndex: label,
	}
}
