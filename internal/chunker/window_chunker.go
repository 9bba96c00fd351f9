package chunker

import (
	"fmt"

	"bankbot/internal/domain"
)

const (
	DefaultSize    = 800
	DefaultOverlap = 100
)

// WindowChunker splits text into fixed-size character windows where each
// window after the first begins overlap characters before the previous end.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker normalizes the window parameters: a non-positive size falls
// back to DefaultSize and overlap is clamped to [0, size-1].
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &WindowChunker{size: size, overlap: overlap}
}

func (c *WindowChunker) Size() int    { return c.size }
func (c *WindowChunker) Overlap() int { return c.overlap }

// Split returns the windows of text, measured in characters (runes).
func (c *WindowChunker) Split(text string) []string {
	spans := c.spans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.text
	}
	return out
}

// Chunk splits a knowledge-base document into indexable chunks.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	spans := c.spans(document.Content)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    fmt.Sprintf("%s:%d", document.ID, i),
			Text:       s.text,
			Index:      i,
			Offset:     s.start,
		})
	}
	return chunks, nil
}

type span struct {
	start int
	text  string
}

func (c *WindowChunker) spans(text string) []span {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	stride := c.size - c.overlap
	out := make([]span, 0, len(runes)/stride+1)
	for start := 0; start < len(runes); start += stride {
		end := min(start+c.size, len(runes))
		out = append(out, span{start: start, text: string(runes[start:end])})
	}
	return out
}

// Split is a convenience wrapper around NewWindowChunker(size, overlap).Split.
func Split(text string, size, overlap int) []string {
	return NewWindowChunker(size, overlap).Split(text)
}
