package domain

import "fmt"

// Record is one raw item from a feed export. Field values are
// URL-encoded strings as delivered by the upstream CMS.
type Record map[string]string

// DeletedSentinel is the identifier value the upstream uses for
// deleted or placeholder records. Such records are never indexed.
const DeletedSentinel = "-1"

// ID returns the record's opaque identifier, if present.
func (r Record) ID() string { return r["unid"] }

// Deleted reports whether the record is a deleted/placeholder entry.
func (r Record) Deleted() bool { return r.ID() == DeletedSentinel }

// Document is a normalized record: a single text blob built from the
// feed's declared fields plus the decoded display metadata.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Chunk is a contiguous slice of a document's normalized text, tagged
// with its position and the total chunk count for the document.
// Concatenating a document's chunks in position order reproduces the
// normalized text exactly.
type Chunk struct {
	DocumentID string
	Position   int
	Total      int
	Text       string
}

// VectorID returns the composite identifier persisted in the index.
// The format is a stable contract: re-ingesting a document overwrites
// the vectors at matching positions.
func (c Chunk) VectorID() string {
	return fmt.Sprintf("%s_chunk%d", c.DocumentID, c.Position)
}

// VectorRecord is the unit persisted in a vector index.
type VectorRecord struct {
	ID       string
	Values   []float64
	Metadata map[string]any
}

// QueryMatch is a single similarity-query hit. SourceIndex is the
// label of the index the match came from, set during query fan-out.
type QueryMatch struct {
	ID          string
	Score       float64
	Metadata    map[string]any
	SourceIndex string
}

// RecomposedDocument is a query-time reconstruction of a source
// document from its retrieved chunks. It is never persisted; Content
// may be incomplete when some chunk positions were not retrieved.
type RecomposedDocument struct {
	UNID     string
	Source   string
	Title    string
	URL      string
	Date     string
	Category string
	Content  string
}
