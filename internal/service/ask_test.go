package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedrag/internal/domain"
)

func testIndices() []IndexRef {
	return []IndexRef{
		{Label: "posts", Name: "confindustria-posts"},
		{Label: "news", Name: "confindustria-news"},
	}
}

func TestSearch_MergesByScoreDescending(t *testing.T) {
	emb := &stubEmbedder{dim: 4}
	idx := newFakeIndex()
	idx.results["confindustria-posts"] = []domain.QueryMatch{
		{ID: "a_chunk0", Score: 0.9, Metadata: map[string]any{"unid": "a"}},
		{ID: "b_chunk0", Score: 0.7, Metadata: map[string]any{"unid": "b"}},
	}
	idx.results["confindustria-news"] = []domain.QueryMatch{
		{ID: "c_chunk0", Score: 0.8, Metadata: map[string]any{"unid": "c"}},
	}
	asker := NewAsker(emb, idx, &stubGenerator{}, testIndices(), 3)

	matches, err := asker.Search(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, 0.9, matches[0].Score)
	assert.Equal(t, "posts", matches[0].SourceIndex)
	assert.Equal(t, 0.8, matches[1].Score)
	assert.Equal(t, "news", matches[1].SourceIndex)
	assert.Equal(t, 0.7, matches[2].Score)
	assert.Equal(t, "posts", matches[2].SourceIndex)

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestSearch_TiesKeepFanOutOrder(t *testing.T) {
	emb := &stubEmbedder{dim: 4}
	idx := newFakeIndex()
	idx.results["confindustria-posts"] = []domain.QueryMatch{{ID: "p", Score: 0.5}}
	idx.results["confindustria-news"] = []domain.QueryMatch{{ID: "n", Score: 0.5}}
	asker := NewAsker(emb, idx, &stubGenerator{}, testIndices(), 3)

	matches, err := asker.Search(context.Background(), "tie")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "posts", matches[0].SourceIndex)
	assert.Equal(t, "news", matches[1].SourceIndex)
}

func TestSearch_FailingIndexIsExcluded(t *testing.T) {
	emb := &stubEmbedder{dim: 4}
	idx := newFakeIndex()
	idx.queryErr["confindustria-posts"] = errors.New("index down")
	idx.results["confindustria-news"] = []domain.QueryMatch{
		{ID: "c_chunk0", Score: 0.8, Metadata: map[string]any{"unid": "c"}},
	}
	asker := NewAsker(emb, idx, &stubGenerator{}, testIndices(), 3)
	var warned bool
	asker.Warnf = func(string, ...any) { warned = true }

	matches, err := asker.Search(context.Background(), "partial")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "news", matches[0].SourceIndex)
	assert.True(t, warned)
}

func TestSearch_EmbedFailureIsFatal(t *testing.T) {
	emb := &stubEmbedder{dim: 4, failOn: "boom"}
	asker := NewAsker(emb, newFakeIndex(), &stubGenerator{}, testIndices(), 3)
	_, err := asker.Search(context.Background(), "boom")
	require.Error(t, err)
}

func TestRecompose_GroupsByLabelAndID(t *testing.T) {
	// same unid in two different indices must stay two documents
	matches := []domain.QueryMatch{
		chunkMeta("posts", "shared", 0, 1, "post text"),
		chunkMeta("news", "shared", 0, 1, "news text"),
	}
	matches[0].Score = 0.9
	matches[1].Score = 0.8

	docs := Recompose(matches)
	require.Len(t, docs, 2)
	assert.Equal(t, "posts", docs[0].Source)
	assert.Equal(t, "post text", docs[0].Content)
	assert.Equal(t, "news", docs[1].Source)
	assert.Equal(t, "news text", docs[1].Content)
}

func TestRecompose_OrdersChunksAndToleratesGaps(t *testing.T) {
	// chunk 1 was not retrieved; recomposition bridges the gap
	m2 := chunkMeta("posts", "doc1", 2, 3, "third part")
	m0 := chunkMeta("posts", "doc1", 0, 3, "first part")
	m2.Score = 0.95
	m0.Score = 0.90

	docs := Recompose([]domain.QueryMatch{m2, m0})
	require.Len(t, docs, 1)
	assert.Equal(t, "first part\nthird part", docs[0].Content)
}

func TestRecompose_KeepsBestMatchMetadata(t *testing.T) {
	best := chunkMeta("posts", "doc1", 1, 2, "later chunk")
	best.Score = 0.9
	best.Metadata["title"] = "Best title"
	best.Metadata["url"] = "https://example.org/best"
	best.Metadata["date"] = "2025-01-01"
	best.Metadata["category"] = "Economia"

	worse := chunkMeta("posts", "doc1", 0, 2, "earlier chunk")
	worse.Score = 0.4
	worse.Metadata["title"] = "Worse title"

	docs := Recompose([]domain.QueryMatch{best, worse})
	require.Len(t, docs, 1)
	assert.Equal(t, "Best title", docs[0].Title)
	assert.Equal(t, "https://example.org/best", docs[0].URL)
	assert.Equal(t, "2025-01-01", docs[0].Date)
	assert.Equal(t, "Economia", docs[0].Category)
	assert.Equal(t, "earlier chunk\nlater chunk", docs[0].Content)
}

func TestRecompose_Empty(t *testing.T) {
	assert.Empty(t, Recompose(nil))
}

func TestBuildContext(t *testing.T) {
	docs := []domain.RecomposedDocument{
		{Source: "posts", Title: "T1", URL: "u1", Date: "d1", Category: "c1", Content: "body one"},
		{Source: "news", Title: "T2", Content: "body two"},
	}
	ctx := BuildContext(docs)
	assert.Contains(t, ctx, "SOURCE: posts")
	assert.Contains(t, ctx, "TITLE: T1")
	assert.Contains(t, ctx, "URL: u1")
	assert.Contains(t, ctx, "CONTENT:\nbody one")
	assert.Contains(t, ctx, "\n\nSOURCE: news")
}

func TestAsk_EndToEnd(t *testing.T) {
	emb := &stubEmbedder{dim: 4}
	idx := newFakeIndex()
	m := chunkMeta("posts", "doc1", 0, 1, "il contenuto del post")
	m.Score = 0.9
	m.Metadata["title"] = "Titolo"
	idx.results["confindustria-posts"] = []domain.QueryMatch{m}

	gen := &stubGenerator{answer: "the grounded answer"}
	asker := NewAsker(emb, idx, gen, testIndices(), 3)
	asker.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	answer, err := asker.Ask(context.Background(), "che cosa dicono i post?")
	require.NoError(t, err)
	assert.Equal(t, "the grounded answer", answer)

	assert.Contains(t, gen.prompt, "che cosa dicono i post?")
	assert.Contains(t, gen.prompt, "il contenuto del post")
	assert.Contains(t, gen.prompt, "- confindustria-posts")
	assert.Contains(t, gen.prompt, "- confindustria-news")
	assert.Contains(t, gen.prompt, "10/03/2025")
}

func TestAsk_GenerationFailureSurfaces(t *testing.T) {
	emb := &stubEmbedder{dim: 4}
	gen := &stubGenerator{err: errors.New("model overloaded")}
	asker := NewAsker(emb, newFakeIndex(), gen, testIndices(), 3)

	_, err := asker.Ask(context.Background(), "q")
	require.ErrorContains(t, err, "model overloaded")
}
