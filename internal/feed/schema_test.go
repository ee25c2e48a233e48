package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedrag/internal/domain"
)

func TestDecode(t *testing.T) {
	assert.Equal(t, "abc def", Decode("abc%20def"))
	assert.Equal(t, "già fatto", Decode("gi%C3%A0%20fatto"))
	assert.Equal(t, "plain", Decode("plain"))
	assert.Equal(t, "", Decode(""))
	// invalid escapes are passed through untouched
	assert.Equal(t, "50%", Decode("50%"))
}

func TestSchema_Normalize(t *testing.T) {
	rec := domain.Record{
		"unid":         "abc123",
		"title":        "Industria%204.0",
		"date":         "2025-03-10",
		"url":          "https://example.org/post/1",
		"category":     "Innovazione",
		"categoryfull": "",
		"content":      "Testo%20del%20post",
	}
	doc, err := Posts.Normalize(rec)
	require.NoError(t, err)

	assert.Equal(t, "abc123", doc.ID)
	// non-empty decoded fields joined in declared order; empty omitted
	assert.Equal(t, "Industria 4.0\n2025-03-10\nhttps://example.org/post/1\nInnovazione\nTesto del post", doc.Text)
	// metadata keeps empty fields and decodes each one
	assert.Equal(t, map[string]string{
		"title":        "Industria 4.0",
		"date":         "2025-03-10",
		"category":     "Innovazione",
		"categoryfull": "",
		"url":          "https://example.org/post/1",
	}, doc.Metadata)
}

func TestSchema_Normalize_MissingID(t *testing.T) {
	_, err := Posts.Normalize(domain.Record{"title": "no id"})
	require.ErrorIs(t, err, ErrMissingID)
}

func TestSchema_Normalize_DateValidation(t *testing.T) {
	t.Run("bad date fails", func(t *testing.T) {
		_, err := Events.Normalize(domain.Record{"unid": "e1", "data": "10/03/2025"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "e1")
	})
	t.Run("valid date passes", func(t *testing.T) {
		_, err := Events.Normalize(domain.Record{"unid": "e1", "data": "2025-03-10"})
		require.NoError(t, err)
	})
	t.Run("absent date passes", func(t *testing.T) {
		_, err := Events.Normalize(domain.Record{"unid": "e1", "titolo": "Assemblea"})
		require.NoError(t, err)
	})
	t.Run("schemas without date field never validate", func(t *testing.T) {
		_, err := News.Normalize(domain.Record{"unid": "n1", "date": "not-a-date"})
		require.NoError(t, err)
	})
}

func TestRecord_Deleted(t *testing.T) {
	assert.True(t, domain.Record{"unid": "-1", "title": "x"}.Deleted())
	assert.False(t, domain.Record{"unid": "abc"}.Deleted())
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"events", "news", "posts"} {
		s, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, s.Name)
		assert.NotEmpty(t, s.Index)
		assert.NotEmpty(t, s.Source)
		assert.NotEmpty(t, s.TextFields)
	}
	_, ok := Lookup("unknown")
	assert.False(t, ok)
}
