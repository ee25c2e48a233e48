// Package chunker splits normalized document text into bounded-size
// chunks for embedding.
package chunker

// DefaultMaxChars is the default chunk bound, sized so a chunk plus
// its metadata stays well under embedding request limits.
const DefaultMaxChars = 2000

// Fixed splits text into consecutive, non-overlapping slices of at
// most maxChars characters. Joining the slices in order reproduces the
// input exactly; the split is deterministic.
type Fixed struct {
	maxChars int
}

func NewFixed(maxChars int) *Fixed {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Fixed{maxChars: maxChars}
}

// MaxChars returns the configured chunk bound.
func (c *Fixed) MaxChars() int { return c.maxChars }

// Split returns the chunk texts in document order. Empty text yields
// no chunks. The bound is counted in characters so a chunk boundary
// never lands inside a multi-byte character.
func (c *Fixed) Split(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/c.maxChars+1)
	for start := 0; start < len(runes); start += c.maxChars {
		end := start + c.maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
