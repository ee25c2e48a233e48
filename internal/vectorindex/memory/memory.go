// Package memory is an in-memory vector index using brute-force cosine
// similarity. It backs local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"feedrag/internal/domain"
)

type index struct {
	dimension int
	records   map[string]domain.VectorRecord
	order     []string
}

// Store holds any number of named indexes in process memory.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

func NewStore() *Store {
	return &Store{indexes: make(map[string]*index)}
}

func (s *Store) EnsureIndex(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		s.indexes[name] = &index{dimension: dimension, records: make(map[string]domain.VectorRecord)}
	}
	return nil
}

func (s *Store) Upsert(_ context.Context, name string, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[name]
	if !ok {
		return fmt.Errorf("unknown index %s", name)
	}
	for _, r := range records {
		if len(r.Values) != idx.dimension {
			return fmt.Errorf("vector dimension %d, index %s expects %d", len(r.Values), name, idx.dimension)
		}
		if _, exists := idx.records[r.ID]; !exists {
			idx.order = append(idx.order, r.ID)
		}
		idx.records[r.ID] = r
	}
	return nil
}

func (s *Store) Query(_ context.Context, name string, vector []float64, topK int) ([]domain.QueryMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return nil, fmt.Errorf("unknown index %s", name)
	}
	matches := make([]domain.QueryMatch, 0, len(idx.order))
	for _, id := range idx.order {
		r := idx.records[id]
		matches = append(matches, domain.QueryMatch{
			ID:       r.ID,
			Score:    cosine(r.Values, vector),
			Metadata: r.Metadata,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len reports the number of records in an index. Test helper.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.indexes[name]; ok {
		return len(idx.records)
	}
	return 0
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
