package vectorstore

import (
	"context"

	"bankbot/internal/domain"
)

// Storage persists chunk vectors and supports similarity search.
type Storage interface {
	Name() string
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
