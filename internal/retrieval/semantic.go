package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"bankbot/internal/domain"
	"bankbot/internal/embedding"
	"bankbot/internal/ranker"
	"bankbot/internal/vectorstore"
)

var ErrNoChunks = errors.New("nothing to index")

// SemanticRetriever searches a vector store with embedded queries. When a
// query embeds to the zero vector it ranks the indexed chunks lexically.
type SemanticRetriever struct {
	embedder embedding.Embedder
	store    vectorstore.Storage

	mu     sync.RWMutex
	chunks []string
}

// NewSemanticRetriever probes the embedder when it can be probed. An error
// means the knowledge base should stay disabled.
func NewSemanticRetriever(ctx context.Context, emb embedding.Embedder, store vectorstore.Storage) (*SemanticRetriever, error) {
	if p, ok := emb.(embedding.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return nil, fmt.Errorf("embedder %s unavailable: %w", emb.Name(), err)
		}
	}
	if _, err := store.Count(ctx); err != nil {
		return nil, fmt.Errorf("vector store %s unavailable: %w", store.Name(), err)
	}
	return &SemanticRetriever{embedder: emb, store: store}, nil
}

func (r *SemanticRetriever) Name() string {
	return "semantic/" + r.embedder.Name() + "/" + r.store.Name()
}

// Index replaces the store contents with chunks.
func (r *SemanticRetriever) Index(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return ErrNoChunks
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	if err := r.embedder.Prepare(ctx, texts); err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}

	vectors := make([][]float64, len(chunks))
	for i, text := range texts {
		vec, err := r.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", chunks[i].ChunkID, err)
		}
		vectors[i] = vec
	}

	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	if err := r.store.Init(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	if err := r.store.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	r.mu.Lock()
	r.chunks = texts
	r.mu.Unlock()

	ctxzap.Info(ctx, "knowledge base indexed",
		zap.String("retriever", r.Name()),
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", len(vectors[0])),
	)
	return nil
}

func (r *SemanticRetriever) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if embedding.IsZero(vec) {
		return r.lexical(query, k), nil
	}

	results, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(results))
	for _, res := range results {
		if res.Score > 1e-9 {
			out = append(out, res.Chunk.Text)
		}
	}
	if len(out) == 0 {
		return r.lexical(query, k), nil
	}
	return out, nil
}

func (r *SemanticRetriever) lexical(query string, k int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ranker.SelectRelevant(r.chunks, query, k)
}
