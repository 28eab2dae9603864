package domain

import "context"

// Document is the extracted, chunked content of one source file for one
// category. It is read-only once built.
type Document struct {
	ID          string
	Path        string
	Category    Category
	ContentHash string
	Content     string
	Chunks      []Chunk
}

// Chunk is a bounded span of a document used for retrieval.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Start      int
	End        int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Chunker splits documents into chunks suitable for retrieval indexing.
// Returned chunks are in document order.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// DocumentLoader loads and chunks the document for one category.
type DocumentLoader interface {
	Load(ctx context.Context, path string, category Category) (*Document, error)
}

// Retriever returns at most k chunks of document ranked against question.
type Retriever interface {
	Retrieve(ctx context.Context, document *Document, question string, k int) ([]SearchResult, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
