package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Pinger is implemented by embedders backed by a remote service that can be
// probed before the knowledge base is enabled.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IsZero reports whether v carries no signal, as happens when none of the
// query's words are in a TF-IDF vocabulary.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
