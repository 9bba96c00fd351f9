package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankbot/internal/domain"
)

func TestSearch_OrdersByScore(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx,
		[]domain.Chunk{{Text: "x"}, {Text: "y"}, {Text: "xy"}},
		[][]float64{{1, 0}, {0, 1}, {0.7071, 0.7071}},
	))

	res, err := s.Search(ctx, []float64{1, 0}, 2)

	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "x", res[0].Chunk.Text)
	assert.Equal(t, "xy", res[1].Chunk.Text)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpsert_Validation(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	assert.ErrorIs(t, s.Init(ctx, 0), ErrInvalidDimension)
	require.NoError(t, s.Init(ctx, 3))
	assert.ErrorIs(t, s.Upsert(ctx, []domain.Chunk{{}}, nil), ErrLengthMismatch)
	assert.ErrorIs(t, s.Upsert(ctx, []domain.Chunk{{}}, [][]float64{{1}}), ErrInvalidDimension)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{}}, [][]float64{{1}}))

	require.NoError(t, s.Clear(ctx))

	n, _ := s.Count(ctx)
	assert.Zero(t, n)
	res, err := s.Search(ctx, []float64{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}
