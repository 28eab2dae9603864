package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/docstore"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/openai"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/engine"
	"docqa/internal/llm"
	"docqa/internal/llm/extractive"
	"docqa/internal/llm/gemini"
	llmopenai "docqa/internal/llm/openai"
	"docqa/internal/llm/ollama"
	"docqa/internal/metrics"
	"docqa/internal/retriever"
	"docqa/internal/session"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

func buildChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "window", "":
		return chunker.NewWindowChunker(cfg.ChunkSize, cfg.Overlap), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, &domain.ConfigError{Field: "chunker.type", Err: fmt.Errorf("unknown chunker %q", cfg.Type)}
	}
}

func buildEmbedderFactory(cfg config.EmbedderConfig) (embedding.Factory, error) {
	switch cfg.Type {
	case "tfidf", "":
		return func() (embedding.Embedder, error) { return tfidf.NewEmbedder(), nil }, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, &domain.ConfigError{Field: "retriever.embedder.openai", Err: fmt.Errorf("missing openai embedder config")}
		}
		oc := openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		}
		return func() (embedding.Embedder, error) { return openai.NewClient(oc) }, nil
	default:
		return nil, &domain.ConfigError{Field: "retriever.embedder.type", Err: fmt.Errorf("unknown embedder %q", cfg.Type)}
	}
}

func buildStoreFactory(cfg config.VectorStoreConfig) (vectorstore.Factory, error) {
	switch cfg.Type {
	case "memory", "":
		return func(*domain.Document) (vectorstore.Storage, error) { return memory.NewStorage(), nil }, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, &domain.ConfigError{Field: "retriever.vector_store.qdrant", Err: fmt.Errorf("missing qdrant config")}
		}
		return qdrant.NewFactory(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.CollectionPrefix,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, &domain.ConfigError{Field: "retriever.vector_store.type", Err: fmt.Errorf("unknown vector store %q", cfg.Type)}
	}
}

// buildGenerator returns the backend of one category, wrapped in retry, rate
// limiting and timeout. The closer is nil unless the backend holds a client.
func buildGenerator(ctx context.Context, cat domain.Category, ec config.EngineConfig, log logrus.FieldLogger) (llm.Generator, io.Closer, error) {
	var (
		gen    llm.Generator
		closer io.Closer
		err    error
	)
	switch ec.Provider {
	case "extractive", "":
		return extractive.New(0), nil, nil
	case "openai":
		gen, err = llmopenai.New(llmopenai.Config{BaseURL: ec.BaseURL, APIKeyEnv: ec.APIKeyEnv, Model: ec.Model, Timeout: ec.Timeout()})
	case "ollama":
		gen, err = ollama.New(ollama.Config{BaseURL: ec.BaseURL, Model: ec.Model, Timeout: ec.Timeout()})
	case "gemini":
		var g *gemini.Generator
		g, err = gemini.New(ctx, gemini.Config{APIKeyEnv: ec.APIKeyEnv, Model: ec.Model, Endpoint: ec.BaseURL})
		if err == nil {
			gen, closer = g, g
		}
	default:
		err = fmt.Errorf("unknown provider %q", ec.Provider)
	}
	if err != nil {
		return nil, nil, &domain.ConfigError{Field: "engines." + string(cat), Err: err}
	}
	wrapped := llm.Wrap(gen, llm.Options{
		MaxRetries:        ec.MaxRetries,
		RequestsPerSecond: ec.RequestsPerSecond,
		Timeout:           ec.Timeout(),
	}, log.WithField("engine", string(cat)))
	return wrapped, closer, nil
}

// buildEngines configures a backend for every category in active. The other
// categories get the offline backend; the runner never calls them.
func buildEngines(ctx context.Context, cfg *config.AppConfig, active map[domain.Category]bool, log logrus.FieldLogger) (*engine.Set, []io.Closer, error) {
	gens := map[domain.Category]llm.Generator{}
	opts := map[domain.Category]engine.Options{}
	var closers []io.Closer
	for _, cat := range domain.Categories() {
		ec := cfg.Engine(cat)
		opts[cat] = engine.Options{Temperature: ec.Temperature}
		if !active[cat] {
			gens[cat] = extractive.New(0)
			continue
		}
		gen, closer, err := buildGenerator(ctx, cat, ec, log)
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		gens[cat] = gen
		log.WithFields(logrus.Fields{"category": cat, "backend": gen.Name()}).Debug("engine configured")
	}
	set, err := engine.NewSet(gens, opts)
	if err != nil {
		closeAll(closers)
		return nil, nil, err
	}
	return set, closers, nil
}

// app is the assembled pipeline of one run.
type app struct {
	runner  *session.Runner
	metrics *metrics.Metrics
	closers []io.Closer
}

func (a *app) Close() {
	closeAll(a.closers)
}

func buildApp(ctx context.Context, cfg *config.AppConfig, active map[domain.Category]bool, log logrus.FieldLogger, observer session.Observer) (*app, error) {
	ch, err := buildChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	newEmbedder, err := buildEmbedderFactory(cfg.Retriever.Embedder)
	if err != nil {
		return nil, err
	}
	newStore, err := buildStoreFactory(cfg.Retriever.VectorStore)
	if err != nil {
		return nil, err
	}
	engines, closers, err := buildEngines(ctx, cfg, active, log)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	runner, err := session.New(session.Deps{
		Loader:    docstore.New(docstore.NewPDFExtractor(), ch, log),
		Retriever: retriever.New(newEmbedder, newStore, retriever.Options{MinScore: cfg.Retriever.MinScore}, log),
		Engines:   engines,
		Log:       log,
		Metrics:   m,
		Observer:  observer,
	}, session.Options{
		TopK:              cfg.Retriever.TopK,
		Timeout:           cfg.Session.Timeout(),
		AnswerConcurrency: cfg.Session.AnswerConcurrency,
	})
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	return &app{runner: runner, metrics: m, closers: closers}, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
