// Package docstore loads source documents, extracts and normalises their
// text, and chunks it for retrieval. Loaded documents are cached per
// (path, category) and reused until the file content changes.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"docqa/internal/domain"
)

type cacheKey struct {
	path     string
	category domain.Category
}

// Store is the DocumentStore. It is safe for concurrent use; Documents it
// returns are shared and must be treated as read-only.
type Store struct {
	extractor Extractor
	chunker   domain.Chunker
	log       logrus.FieldLogger

	mu    sync.Mutex
	cache map[cacheKey]*domain.Document
}

// New creates a Store.
func New(extractor Extractor, chunker domain.Chunker, log logrus.FieldLogger) *Store {
	return &Store{
		extractor: extractor,
		chunker:   chunker,
		log:       log,
		cache:     make(map[cacheKey]*domain.Document),
	}
}

// Load reads path, extracts and chunks it. Every failure is a
// *domain.DocumentLoadError. The source file is never modified.
func (s *Store) Load(ctx context.Context, path string, category domain.Category) (*domain.Document, error) {
	fail := func(err error) (*domain.Document, error) {
		return nil, &domain.DocumentLoadError{Path: path, Category: category, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	key := cacheKey{path: absPath(path), category: category}

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok && cached.ContentHash == hash {
		s.log.WithFields(logrus.Fields{"category": category, "path": path}).Debug("document cache hit")
		return cached, nil
	}

	raw, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return fail(err)
	}
	content := Normalize(raw)
	if strings.TrimSpace(content) == "" {
		return fail(domain.ErrEmptyExtraction)
	}

	doc := &domain.Document{
		ID:          string(category) + "-" + hash[:16],
		Path:        path,
		Category:    category,
		ContentHash: hash,
		Content:     content,
	}
	chunks, err := s.chunker.Chunk(*doc)
	if err != nil {
		return fail(err)
	}
	doc.Chunks = chunks

	s.mu.Lock()
	s.cache[key] = doc
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"category": category,
		"path":     path,
		"chars":    len(content),
		"chunks":   len(chunks),
	}).Info("document loaded")
	return doc, nil
}

// Invalidate drops the cached document for (path, category).
func (s *Store) Invalidate(path string, category domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, cacheKey{path: absPath(path), category: category})
}

// Purge drops every cached document.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[cacheKey]*domain.Document)
}

// Cached returns the number of cached documents.
func (s *Store) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

var _ domain.DocumentLoader = (*Store)(nil)
