package retrieval

import (
	"context"

	"bankbot/internal/chunker"
	"bankbot/internal/ranker"
)

// Retriever returns up to k passages relevant to query, best first.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// LexicalRetriever ranks fixed windows of a single text by shared words.
type LexicalRetriever struct {
	chunks []string
}

func NewLexicalRetriever(c *chunker.WindowChunker, text string) *LexicalRetriever {
	return &LexicalRetriever{chunks: c.Split(text)}
}

func (r *LexicalRetriever) Name() string { return "lexical" }

func (r *LexicalRetriever) Retrieve(_ context.Context, query string, k int) ([]string, error) {
	return ranker.SelectRelevant(r.chunks, query, k), nil
}
