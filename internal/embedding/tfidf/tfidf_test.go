package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankbot/internal/embedding"
)

func TestEmbed_RequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "loan")

	assert.ErrorIs(t, err, ErrNotPrepared)
}

func TestPrepare_EmptyCorpus(t *testing.T) {
	err := NewEmbedder().Prepare(context.Background(), []string{"the and of", ""})

	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestEmbed_NormalizedAndComparable(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	require.NoError(t, e.Prepare(ctx, []string{
		"home loan interest rates",
		"debit card blocking steps",
		"fixed deposit interest payout",
	}))
	assert.Equal(t, 11, e.Dimension())

	loan, err := e.Embed(ctx, "home loan")
	require.NoError(t, err)
	card, err := e.Embed(ctx, "block debit card")
	require.NoError(t, err)

	norm := 0.0
	for _, v := range loan {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)

	dot := 0.0
	for i := range loan {
		dot += loan[i] * card[i]
	}
	assert.Zero(t, dot)
}

func TestEmbed_UnknownWordsGiveZeroVector(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	require.NoError(t, e.Prepare(ctx, []string{"upi pin reset"}))

	v, err := e.Embed(ctx, "weather tomorrow")

	require.NoError(t, err)
	assert.True(t, embedding.IsZero(v))
}
