package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func chunks(n int) []domain.Chunk {
	out := make([]domain.Chunk, n)
	for i := range out {
		out[i] = domain.Chunk{Index: i, Text: string(rune('a' + i))}
	}
	return out
}

func TestSearchRanksAndBreaksTiesByIndex(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, chunks(4), [][]float64{
		{0, 1},
		{1, 0},
		{0.6, 0.8},
		{1, 0},
	}))

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []int{1, 3, 2}, []int{res[0].Chunk.Index, res[1].Chunk.Index, res[2].Chunk.Index})
	assert.InDelta(t, 0.6, res[2].Score, 1e-12)
}

func TestSearchRepeatable(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, chunks(6), [][]float64{{1}, {1}, {1}, {1}, {1}, {1}}))

	for i := 0; i < 5; i++ {
		res, err := s.Search(ctx, []float64{1}, 4)
		require.NoError(t, err)
		got := make([]int, len(res))
		for j, r := range res {
			got[j] = r.Chunk.Index
		}
		assert.Equal(t, []int{0, 1, 2, 3}, got)
	}
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	assert.Error(t, s.Init(ctx, 0))
	require.NoError(t, s.Init(ctx, 2))
	assert.Error(t, s.Upsert(ctx, chunks(2), [][]float64{{1, 0}}))
	assert.Error(t, s.Upsert(ctx, chunks(1), [][]float64{{1, 0, 0}}))
}

func TestClearAndEmptySearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, chunks(2), [][]float64{{1}, {0.5}}))
	require.NoError(t, s.Clear(ctx))

	res, err := s.Search(ctx, []float64{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}
