package retriever

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
)

func document(id string, texts ...string) *domain.Document {
	doc := &domain.Document{ID: id, Category: domain.Foundation}
	for i, t := range texts {
		doc.Chunks = append(doc.Chunks, domain.Chunk{DocumentID: id, Index: i, Text: t})
	}
	return doc
}

var geography = document("doc-geo",
	"The capital of France is Paris.",
	"Photosynthesis converts sunlight into chemical energy.",
	"Paris hosts the Louvre museum.",
)

func newRetriever(t *testing.T, opts Options) (*Retriever, *atomic.Int32) {
	t.Helper()
	var builds atomic.Int32
	log, _ := test.NewNullLogger()
	r := New(
		func() (embedding.Embedder, error) {
			builds.Add(1)
			return tfidf.NewEmbedder(), nil
		},
		func(*domain.Document) (vectorstore.Storage, error) { return memory.NewStorage(), nil },
		opts, log,
	)
	return r, &builds
}

func indexes(res []domain.SearchResult) []int {
	out := make([]int, len(res))
	for i, r := range res {
		out[i] = r.Chunk.Index
	}
	return out
}

func TestRetrieveRanksRelevantChunkFirst(t *testing.T) {
	r, _ := newRetriever(t, Options{})
	res, err := r.Retrieve(context.Background(), geography, "What is the capital of France?", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, indexes(res))
	assert.Greater(t, res[0].Score, res[1].Score)
}

func TestRetrieveIsDeterministic(t *testing.T) {
	r, _ := newRetriever(t, Options{})
	first, err := r.Retrieve(context.Background(), geography, "Where is the Louvre?", 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Retrieve(context.Background(), geography, "Where is the Louvre?", 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	// a fresh retriever over the same document agrees
	other, _ := newRetriever(t, Options{})
	fresh, err := other.Retrieve(context.Background(), geography, "Where is the Louvre?", 3)
	require.NoError(t, err)
	assert.Equal(t, first, fresh)
}

func TestRetrieveEmptyDocument(t *testing.T) {
	r, builds := newRetriever(t, Options{})
	res, err := r.Retrieve(context.Background(), document("empty"), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, int32(0), builds.Load())

	res, err = r.Retrieve(context.Background(), nil, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestRetrieveCapsAtChunkCount(t *testing.T) {
	r, _ := newRetriever(t, Options{})
	res, err := r.Retrieve(context.Background(), geography, "Paris", 10)
	require.NoError(t, err)
	assert.Len(t, res, 3)

	res, err = r.Retrieve(context.Background(), geography, "Paris", 0)
	require.NoError(t, err)
	assert.Len(t, res, defaultTopK)
}

func TestRetrieveTiesBreakByIndex(t *testing.T) {
	doc := document("doc-same", "alpha beta", "alpha beta", "alpha beta")
	r, _ := newRetriever(t, Options{})
	res, err := r.Retrieve(context.Background(), doc, "alpha", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indexes(res))
}

func TestRetrieveFallsBackToLexicalOverlap(t *testing.T) {
	r, _ := newRetriever(t, Options{})
	// only stopwords: the TF-IDF vector is zero
	res, err := r.Retrieve(context.Background(), geography, "is the of", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, indexes(res))
	assert.InDelta(t, 3/4.242640687, res[0].Score, 1e-6)
	assert.Zero(t, res[2].Score)
}

func TestRetrieveStopwordOnlyDocument(t *testing.T) {
	doc := document("doc-stop", "of the", "is it the")
	r, _ := newRetriever(t, Options{})
	res, err := r.Retrieve(context.Background(), doc, "is it", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, indexes(res))
}

func TestRetrieveMinScoreFilters(t *testing.T) {
	r, _ := newRetriever(t, Options{MinScore: 0.1})
	res, err := r.Retrieve(context.Background(), geography, "capital France", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, indexes(res))
}

func TestIndexBuiltOncePerDocument(t *testing.T) {
	r, builds := newRetriever(t, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Retrieve(context.Background(), geography, "Paris", 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), builds.Load())

	_, err := r.Retrieve(context.Background(), document("doc-other", "Berlin is in Germany."), "Berlin", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), builds.Load())

	require.NoError(t, r.Forget(context.Background(), geography.ID))
	_, err = r.Retrieve(context.Background(), geography, "Paris", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), builds.Load())
}

func TestRetrieveFactoryFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	boom := errors.New("boom")
	r := New(
		func() (embedding.Embedder, error) { return nil, boom },
		func(*domain.Document) (vectorstore.Storage, error) { return memory.NewStorage(), nil },
		Options{}, log,
	)
	_, err := r.Retrieve(context.Background(), geography, "Paris", 1)
	assert.ErrorIs(t, err, boom)

	// failed builds are not cached
	_, err = r.Retrieve(context.Background(), geography, "Paris", 1)
	assert.ErrorIs(t, err, boom)
}

func TestRetrieveNormalisesQuestion(t *testing.T) {
	doc := document("doc-fr",
		"Les trains partent de la gare centrale.",
		"Le résumé des écoles publiques est publié.",
	)
	r, _ := newRetriever(t, Options{})
	composed, err := r.Retrieve(context.Background(), doc, "r\u00e9sum\u00e9 \u00e9coles", 1)
	require.NoError(t, err)
	decomposed, err := r.Retrieve(context.Background(), doc, "re\u0301sume\u0301 e\u0301coles", 1)
	require.NoError(t, err)

	require.Len(t, composed, 1)
	assert.Equal(t, 1, composed[0].Chunk.Index)
	assert.Equal(t, composed, decomposed)
}

type clearCountingStore struct {
	*memory.Storage
	clears *atomic.Int32
}

func (s clearCountingStore) Clear(ctx context.Context) error {
	s.clears.Add(1)
	return s.Storage.Clear(ctx)
}

func TestChangedSourceReplacesIndex(t *testing.T) {
	log, _ := test.NewNullLogger()
	var clears atomic.Int32
	r := New(
		func() (embedding.Embedder, error) { return tfidf.NewEmbedder(), nil },
		func(*domain.Document) (vectorstore.Storage, error) {
			return clearCountingStore{Storage: memory.NewStorage(), clears: &clears}, nil
		},
		Options{}, log,
	)
	ctx := context.Background()

	v1 := document("foundation-aaaa", "Paris is the capital of France.")
	v1.Path = "/docs/en.pdf"
	v2 := document("foundation-bbbb", "Berlin is the capital of Germany.")
	v2.Path = "/docs/en.pdf"
	other := document("indic-cccc", "Paris is the capital of France.")
	other.Path = "/docs/en.pdf"
	other.Category = domain.Indic

	_, err := r.Retrieve(ctx, v1, "capital", 1)
	require.NoError(t, err)
	_, err = r.Retrieve(ctx, other, "capital", 1)
	require.NoError(t, err)
	// every build clears its fresh store once
	assert.Equal(t, int32(2), clears.Load())

	res, err := r.Retrieve(ctx, v2, "capital", 1)
	require.NoError(t, err)
	assert.Contains(t, res[0].Chunk.Text, "Berlin")

	r.mu.Lock()
	_, oldKept := r.indexes[v1.ID]
	_, otherKept := r.indexes[other.ID]
	_, newKept := r.indexes[v2.ID]
	r.mu.Unlock()
	assert.False(t, oldKept)
	assert.True(t, otherKept)
	assert.True(t, newKept)
	// the new build plus the stale index
	assert.Equal(t, int32(4), clears.Load())
}
