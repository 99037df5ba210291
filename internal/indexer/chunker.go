package indexer

import (
	"fmt"
	"unicode/utf8"
)

// Chunker splits text into consecutive, non-overlapping pieces of a fixed number of
// characters. The last piece may be shorter. Boundaries ignore words and sentences.
type Chunker struct {
	size int
}

// NewChunker creates a chunker producing chunks of size characters.
func NewChunker(size int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	return &Chunker{size: size}, nil
}

// Size returns the chunk length in characters.
func (c *Chunker) Size() int {
	return c.size
}

// Chunk splits text in order. Concatenating the result yields text exactly;
// an invalid UTF-8 byte counts as one character.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	chunks := make([]string, 0, utf8.RuneCountInString(text)/c.size+1)
	start, n := 0, 0
	for i := 0; i < len(text); {
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
		n++
		if n == c.size {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}
