// Package service wires the ingestion and question-answering
// pipelines on top of the embedding, vector index and generation
// providers.
package service

import (
	"context"
	"errors"
	"fmt"

	"feedrag/internal/chunker"
	"feedrag/internal/domain"
	"feedrag/internal/feed"
)

// DefaultBatchSize bounds each upsert call to stay within the index
// provider's payload limits. It is a tunable, not a correctness knob.
const DefaultBatchSize = 50

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	// Documents is the number of records normalized and chunked.
	Documents int
	// Skipped counts deleted-sentinel and malformed records.
	Skipped int
	// Failed counts documents dropped after an embedding failure.
	Failed int
	// Vectors is the number of vector records upserted.
	Vectors int
}

// Ingestor runs the write path: normalize, chunk, embed and upsert one
// feed's records into its index. All calls are sequential and
// blocking.
type Ingestor struct {
	embedder  domain.Embedder
	index     domain.VectorIndex
	chunker   *chunker.Fixed
	batchSize int

	// Progressf and Warnf, when set, receive per-document progress and
	// skip/failure notices.
	Progressf func(format string, args ...any)
	Warnf     func(format string, args ...any)
}

func NewIngestor(embedder domain.Embedder, index domain.VectorIndex, ch *chunker.Fixed, batchSize int) *Ingestor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Ingestor{embedder: embedder, index: index, chunker: ch, batchSize: batchSize}
}

// IngestFile loads a feed export and ingests it under the given
// schema.
func (in *Ingestor) IngestFile(ctx context.Context, path string, schema feed.Schema) (IngestStats, error) {
	records, err := feed.LoadRecords(path)
	if err != nil {
		return IngestStats{}, err
	}
	return in.IngestRecords(ctx, records, schema)
}

// IngestRecords ingests the records into the schema's index, ensuring
// the index exists first. Deleted-sentinel and malformed records are
// skipped; an embedding failure drops the rest of that document's
// chunks and moves on; a date parse failure or upsert failure aborts
// the run. The run is not atomic: batches upserted before a failure
// stay in the index, and a re-ingest that produces fewer chunks than a
// previous run leaves the stale trailing chunk vectors in place.
func (in *Ingestor) IngestRecords(ctx context.Context, records []domain.Record, schema feed.Schema) (IngestStats, error) {
	var stats IngestStats
	if err := in.index.EnsureIndex(ctx, schema.Index, in.embedder.Dimension()); err != nil {
		return stats, fmt.Errorf("ensure index %s: %w", schema.Index, err)
	}

	var vectors []domain.VectorRecord
	for _, rec := range records {
		if rec.Deleted() {
			stats.Skipped++
			continue
		}
		doc, err := schema.Normalize(rec)
		if err != nil {
			if errors.Is(err, feed.ErrMissingID) {
				in.warnf("skipping malformed record: %v", err)
				stats.Skipped++
				continue
			}
			return stats, err
		}
		stats.Documents++
		in.progressf("document %d: %s", stats.Documents, doc.ID)

		texts := in.chunker.Split(doc.Text)
		docVectors := make([]domain.VectorRecord, 0, len(texts))
		failed := false
		for pos, text := range texts {
			ch := domain.Chunk{DocumentID: doc.ID, Position: pos, Total: len(texts), Text: text}
			vec, err := in.embedder.Embed(ctx, text)
			if err != nil {
				in.warnf("embedding chunk %d of %s failed, dropping document: %v", pos, doc.ID, err)
				failed = true
				break
			}
			docVectors = append(docVectors, domain.VectorRecord{
				ID:       ch.VectorID(),
				Values:   vec,
				Metadata: vectorMetadata(doc, ch, schema),
			})
		}
		if failed {
			stats.Failed++
			continue
		}
		vectors = append(vectors, docVectors...)
	}

	for start := 0; start < len(vectors); start += in.batchSize {
		end := start + in.batchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		if err := in.index.Upsert(ctx, schema.Index, vectors[start:end]); err != nil {
			return stats, fmt.Errorf("upsert batch into %s: %w", schema.Index, err)
		}
		stats.Vectors += end - start
	}
	return stats, nil
}

// vectorMetadata builds the metadata persisted alongside each chunk
// vector: the decoded display fields plus the bookkeeping needed to
// recompose the document at query time.
func vectorMetadata(doc domain.Document, ch domain.Chunk, schema feed.Schema) map[string]any {
	meta := make(map[string]any, len(doc.Metadata)+5)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta["unid"] = doc.ID
	meta["text"] = ch.Text
	meta["chunk_index"] = ch.Position
	meta["chunk_total"] = ch.Total
	meta["source"] = schema.Source
	return meta
}

func (in *Ingestor) progressf(format string, args ...any) {
	if in.Progressf != nil {
		in.Progressf(format, args...)
	}
}

func (in *Ingestor) warnf(format string, args ...any) {
	if in.Warnf != nil {
		in.Warnf(format, args...)
	}
}
