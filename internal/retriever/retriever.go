package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/textproc"
	"docqa/internal/vectorstore"
)

const (
	defaultTopK = 3
	zeroScore   = 1e-9
)

// entry is a cache slot whose index is valid once ready is closed.
type entry struct {
	ready chan struct{}
	idx   *index
	err   error
}

// index is the prepared vector index of one document.
type index struct {
	embedder embedding.Embedder
	store    vectorstore.Storage
	chunks   []domain.Chunk
}

// source identifies where a document came from, independent of its content.
type source struct {
	path     string
	category domain.Category
}

// Retriever ranks a document's chunks against a question. Each document gets
// its own embedder and store so vocabularies never mix across documents.
type Retriever struct {
	newEmbedder embedding.Factory
	newStore    vectorstore.Factory
	minScore    float64
	log         logrus.FieldLogger

	mu      sync.Mutex
	indexes map[string]*entry
	// current maps a source to the ID of its latest indexed document, so a
	// changed file replaces the index built for its previous content.
	current map[source]string
}

// Options tunes a Retriever.
type Options struct {
	MinScore float64
}

func New(newEmbedder embedding.Factory, newStore vectorstore.Factory, opts Options, log logrus.FieldLogger) *Retriever {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Retriever{
		newEmbedder: newEmbedder,
		newStore:    newStore,
		minScore:    opts.MinScore,
		log:         log.WithField("component", "retriever"),
		indexes:     map[string]*entry{},
		current:     map[source]string{},
	}
}

// Retrieve returns at most k chunks of document, best first. A document with
// no chunks yields no passages and no error. The question is NFC-normalised
// to match the normalised document text.
func (r *Retriever) Retrieve(ctx context.Context, document *domain.Document, question string, k int) ([]domain.SearchResult, error) {
	if document == nil || len(document.Chunks) == 0 {
		return nil, nil
	}
	question = norm.NFC.String(question)
	if k <= 0 {
		k = defaultTopK
	}
	idx, err := r.indexFor(ctx, document)
	if err != nil {
		return nil, err
	}

	if idx.embedder == nil {
		return r.filter(lexicalSearch(idx.chunks, question, k)), nil
	}
	vec, err := idx.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if isZero(vec) {
		return r.filter(lexicalSearch(idx.chunks, question, k)), nil
	}
	res, err := idx.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", document.ID, err)
	}
	allZero := true
	for _, sr := range res {
		if sr.Score > zeroScore {
			allZero = false
			break
		}
	}
	if allZero {
		return r.filter(lexicalSearch(idx.chunks, question, k)), nil
	}
	return r.filter(res), nil
}

// Forget drops the cached index of a document.
func (r *Retriever) Forget(ctx context.Context, documentID string) error {
	r.mu.Lock()
	e, ok := r.indexes[documentID]
	delete(r.indexes, documentID)
	for src, id := range r.current {
		if id == documentID {
			delete(r.current, src)
		}
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return release(ctx, e)
}

// release clears the store of e once its build has finished.
func release(ctx context.Context, e *entry) error {
	<-e.ready
	if e.err != nil || e.idx.store == nil {
		return nil
	}
	return e.idx.store.Clear(ctx)
}

func (r *Retriever) filter(res []domain.SearchResult) []domain.SearchResult {
	if r.minScore <= 0 {
		return res
	}
	out := res[:0]
	for _, sr := range res {
		if sr.Score >= r.minScore {
			out = append(out, sr)
		}
	}
	return out
}

// indexFor returns the cached index for document, building it on first use.
// Documents are keyed by ID, which embeds the content hash. Concurrent callers
// for the same document wait for a single build. A document loaded from the
// same path and category as an indexed one with a different ID replaces it.
func (r *Retriever) indexFor(ctx context.Context, document *domain.Document) (*index, error) {
	r.mu.Lock()
	if e, ok := r.indexes[document.ID]; ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err != nil {
			return nil, e.err
		}
		return e.idx, nil
	}
	e := &entry{ready: make(chan struct{})}
	r.indexes[document.ID] = e
	var stale *entry
	if document.Path != "" {
		src := source{path: document.Path, category: document.Category}
		if prev, ok := r.current[src]; ok && prev != document.ID {
			stale = r.indexes[prev]
			delete(r.indexes, prev)
		}
		r.current[src] = document.ID
	}
	r.mu.Unlock()

	if stale != nil {
		if err := release(ctx, stale); err != nil {
			r.log.WithError(err).WithField("document", document.ID).Warn("stale index not cleared")
		}
	}

	start := time.Now()
	e.idx, e.err = r.build(ctx, document)
	if e.err != nil {
		r.mu.Lock()
		delete(r.indexes, document.ID)
		r.mu.Unlock()
	}
	close(e.ready)
	if e.err != nil {
		return nil, e.err
	}
	r.log.WithFields(logrus.Fields{
		"document": document.ID,
		"category": document.Category,
		"chunks":   len(document.Chunks),
		"duration": time.Since(start),
	}).Debug("index built")
	return e.idx, nil
}

func (r *Retriever) build(ctx context.Context, document *domain.Document) (*index, error) {
	emb, err := r.newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("new embedder: %w", err)
	}
	store, err := r.newStore(document)
	if err != nil {
		return nil, fmt.Errorf("new vector store: %w", err)
	}
	texts := make([]string, len(document.Chunks))
	for i, ch := range document.Chunks {
		texts[i] = ch.Text
	}
	if err := emb.Prepare(ctx, texts); err != nil {
		if errors.Is(err, embedding.ErrNoTokens) {
			// nothing to vectorise, rank lexically
			return &index{chunks: document.Chunks}, nil
		}
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := emb.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		vectors[i] = vec
	}
	if err := store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear vector store: %w", err)
	}
	// remote embedders only learn their dimension on first embed
	if err := store.Init(ctx, emb.Dimension()); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	if err := store.Upsert(ctx, document.Chunks, vectors); err != nil {
		return nil, fmt.Errorf("upsert chunks: %w", err)
	}
	return &index{embedder: emb, store: store, chunks: document.Chunks}, nil
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// lexicalSearch ranks chunks by distinct-token overlap with the query.
func lexicalSearch(chunks []domain.Chunk, query string, topK int) []domain.SearchResult {
	tokenize := textproc.TokenSet
	qset := tokenize(query)
	if len(qset) == 0 {
		// a query of only stopwords still deserves an overlap signal
		tokenize = wordSet
		qset = tokenize(query)
	}
	results := make([]domain.SearchResult, len(chunks))
	for i, ch := range chunks {
		results[i] = domain.SearchResult{Chunk: ch, Score: ochiai(qset, tokenize(ch.Text))}
	}
	vectorstore.SortResults(results)
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK]
}

func wordSet(text string) map[string]struct{} {
	words := textproc.Words(text)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range b {
		if _, ok := a[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}

var _ domain.Retriever = (*Retriever)(nil)
