package embedding

import (
	"context"
	"errors"
)

// ErrNoTokens is returned by Prepare when the corpus has no indexable words.
var ErrNoTokens = errors.New("no tokens found in corpus")

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Factory builds a fresh Embedder. Retrieval prepares one per document so
// vocabularies never leak between documents.
type Factory func() (Embedder, error)
