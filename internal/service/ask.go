package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"feedrag/internal/domain"
)

// DefaultTopK is the per-index match count used when none is
// configured.
const DefaultTopK = 3

// IndexRef names one index to fan a query out to. Label tags the
// matches and appears in answers; Name is the provider-side index
// name.
type IndexRef struct {
	Label string
	Name  string
}

// Asker runs the read path: embed the question once, fan it out across
// the configured indices, recompose the matched documents and ask the
// generator for a grounded answer.
type Asker struct {
	embedder  domain.Embedder
	index     domain.VectorIndex
	generator domain.Generator
	indices   []IndexRef
	topK      int

	// Warnf, when set, receives per-index query failures. Failing
	// indices are excluded from the merged results, not fatal.
	Warnf func(format string, args ...any)

	// now is the clock injected into the prompt; overridable in tests.
	now func() time.Time
}

func NewAsker(embedder domain.Embedder, index domain.VectorIndex, generator domain.Generator, indices []IndexRef, topK int) *Asker {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Asker{
		embedder:  embedder,
		index:     index,
		generator: generator,
		indices:   indices,
		topK:      topK,
		now:       time.Now,
	}
}

// Search embeds the query once and issues a top-k similarity query
// against every configured index. Matches are tagged with their origin
// label and merged by score descending; ties keep fan-out order.
func (a *Asker) Search(ctx context.Context, query string) ([]domain.QueryMatch, error) {
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	var merged []domain.QueryMatch
	for _, ref := range a.indices {
		matches, err := a.index.Query(ctx, ref.Name, vec, a.topK)
		if err != nil {
			a.warnf("index %s: %v", ref.Label, err)
			continue
		}
		for _, m := range matches {
			m.SourceIndex = ref.Label
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	return merged, nil
}

// Recompose groups score-ordered matches by (origin index label,
// document id) and rebuilds each document by joining its retrieved
// chunk texts in ascending chunk position. Positions missing from the
// match set simply leave a gap. Display metadata comes from the
// group's highest-scoring match; output order follows each group's
// best match.
func Recompose(matches []domain.QueryMatch) []domain.RecomposedDocument {
	type key struct{ label, unid string }
	type group struct {
		doc    domain.RecomposedDocument
		chunks map[int]string
	}
	groups := make(map[key]*group)
	var order []key

	for _, m := range matches {
		unid := metaString(m.Metadata, "unid")
		k := key{label: m.SourceIndex, unid: unid}
		g, ok := groups[k]
		if !ok {
			g = &group{
				doc: domain.RecomposedDocument{
					UNID:     unid,
					Source:   m.SourceIndex,
					Title:    metaString(m.Metadata, "title"),
					URL:      metaString(m.Metadata, "url"),
					Date:     metaString(m.Metadata, "date"),
					Category: metaString(m.Metadata, "category"),
				},
				chunks: make(map[int]string),
			}
			groups[k] = g
			order = append(order, k)
		}
		g.chunks[metaInt(m.Metadata, "chunk_index")] = metaString(m.Metadata, "text")
	}

	docs := make([]domain.RecomposedDocument, 0, len(order))
	for _, k := range order {
		g := groups[k]
		positions := make([]int, 0, len(g.chunks))
		for pos := range g.chunks {
			positions = append(positions, pos)
		}
		sort.Ints(positions)
		texts := make([]string, 0, len(positions))
		for _, pos := range positions {
			texts = append(texts, g.chunks[pos])
		}
		g.doc.Content = strings.Join(texts, "\n")
		docs = append(docs, g.doc)
	}
	return docs
}

// BuildContext renders the recomposed documents into the text block
// handed to the generator, one blank-line-separated section per
// document.
func BuildContext(docs []domain.RecomposedDocument) string {
	sections := make([]string, 0, len(docs))
	for _, doc := range docs {
		sections = append(sections, fmt.Sprintf(
			"SOURCE: %s\nTITLE: %s\nURL: %s\nDATE: %s\nCATEGORY: %s\nCONTENT:\n%s",
			doc.Source, doc.Title, doc.URL, doc.Date, doc.Category, doc.Content,
		))
	}
	return strings.Join(sections, "\n\n")
}

// Ask answers the question from the indexed documents only. The
// generated text is returned verbatim; generation failures surface to
// the caller without retry.
func (a *Asker) Ask(ctx context.Context, query string) (string, error) {
	matches, err := a.Search(ctx, query)
	if err != nil {
		return "", err
	}
	docs := Recompose(matches)
	return a.generator.Complete(ctx, a.prompt(query, BuildContext(docs)))
}

func (a *Asker) prompt(query, contextBlock string) string {
	labels := make([]string, 0, len(a.indices))
	for _, ref := range a.indices {
		labels = append(labels, "- "+ref.Name)
	}
	return fmt.Sprintf(`You are an assistant that answers questions using Confindustria Varese documents drawn from these sources:
%s

User question: %s

Relevant documents:
%s

Answer clearly and concisely, and always state the SOURCE of the information. Whenever a URL is present, include it. Never use information beyond the documents supplied above. When asked about upcoming events, keep in mind that today's date is %s.`,
		strings.Join(labels, "\n"), query, contextBlock, a.now().Format("02/01/2006"))
}

func (a *Asker) warnf(format string, args ...any) {
	if a.Warnf != nil {
		a.Warnf(format, args...)
	}
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// metaInt reads a numeric metadata value. JSON decoding yields
// float64, the in-memory store keeps int.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
