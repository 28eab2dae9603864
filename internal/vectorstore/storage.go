package vectorstore

import (
	"context"
	"sort"

	"docqa/internal/domain"
)

// Storage persists vectors and supports similarity search.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Clear(ctx context.Context) error
}

// Factory builds the Storage backing one document's index.
type Factory func(document *domain.Document) (Storage, error)

// SortResults orders results by descending score, breaking ties by chunk
// index so equal scores always rank earlier chunks first.
func SortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
}
