// Package feed declares the per-feed record schemas and normalizes raw
// feed records into indexable documents.
package feed

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"feedrag/internal/domain"
)

// ErrMissingID marks a record without the required identifier field.
// Callers skip such records; the error is not fatal for a run.
var ErrMissingID = errors.New("record has no unid")

// DateLayout is the only date format the feeds emit.
const DateLayout = "2006-01-02"

// Schema describes one feed type: which fields make up the indexed
// text blob (in order), which fields are kept as display metadata, and
// where the documents go.
type Schema struct {
	Name           string   `yaml:"name"`
	Index          string   `yaml:"index"`
	Source         string   `yaml:"source"`
	TextFields     []string `yaml:"text_fields"`
	MetadataFields []string `yaml:"metadata_fields"`
	// DateField, when set, names a field that must parse as DateLayout.
	// A record whose date does not parse aborts the ingestion run.
	DateField string `yaml:"date_field,omitempty"`
}

// Builtin schemas for the three association feeds.
var (
	Events = Schema{
		Name:           "events",
		Index:          "confindustria-eventi",
		Source:         "confindustria_varese_eventi",
		TextFields:     []string{"titolo", "data", "descrizione", "AreaInteresse", "Settori", "Tags"},
		MetadataFields: []string{"titolo", "data", "settori", "areainteresse", "tags"},
		DateField:      "data",
	}
	News = Schema{
		Name:           "news",
		Index:          "confindustria-news",
		Source:         "notiziario",
		TextFields:     []string{"title", "subject", "content", "circolareinbreve", "settore", "areatematica", "interesse"},
		MetadataFields: []string{"title", "date", "settore", "areatematica", "interesse"},
	}
	Posts = Schema{
		Name:           "posts",
		Index:          "confindustria-posts",
		Source:         "confindustria_varese_post",
		TextFields:     []string{"title", "date", "url", "category", "categoryfull", "content"},
		MetadataFields: []string{"title", "date", "category", "categoryfull", "url"},
	}
)

// Lookup returns a builtin schema by name.
func Lookup(name string) (Schema, bool) {
	switch name {
	case Events.Name:
		return Events, true
	case News.Name:
		return News, true
	case Posts.Name:
		return Posts, true
	}
	return Schema{}, false
}

// Normalize turns a raw record into a Document: a newline-joined blob
// of the schema's non-empty decoded text fields plus a metadata map
// with every metadata field individually decoded (empty values kept).
// Deleted records must be filtered out by the caller first.
func (s Schema) Normalize(rec domain.Record) (domain.Document, error) {
	id := rec.ID()
	if id == "" {
		return domain.Document{}, ErrMissingID
	}
	if s.DateField != "" {
		if raw := rec[s.DateField]; raw != "" {
			if _, err := time.Parse(DateLayout, Decode(raw)); err != nil {
				return domain.Document{}, fmt.Errorf("record %s: bad %s value %q: %w", id, s.DateField, raw, err)
			}
		}
	}

	parts := make([]string, 0, len(s.TextFields))
	for _, f := range s.TextFields {
		if v := Decode(rec[f]); v != "" {
			parts = append(parts, v)
		}
	}
	meta := make(map[string]string, len(s.MetadataFields))
	for _, f := range s.MetadataFields {
		meta[f] = Decode(rec[f])
	}
	return domain.Document{
		ID:       id,
		Text:     strings.Join(parts, "\n"),
		Metadata: meta,
	}, nil
}

// Decode percent-decodes a URL-encoded field value. Values that are
// not valid encodings are returned unchanged, matching the lenient
// decoding of the feed exporter.
func Decode(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
