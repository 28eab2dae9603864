package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"docqa/internal/domain"
)

// LoggerConfig configures the process logger.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrieverConfig configures context retrieval.
type RetrieverConfig struct {
	TopK        int               `yaml:"top_k"`
	MinScore    float64           `yaml:"min_score"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
}

// EngineConfig selects the language model backend of one category.
type EngineConfig struct {
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	APIKeyEnv         string  `yaml:"api_key_env,omitempty"`
	Temperature       float32 `yaml:"temperature"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Timeout returns the per-answer timeout.
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// SessionConfig bounds a QA session.
type SessionConfig struct {
	TimeoutSecs       int `yaml:"timeout_secs"`
	AnswerConcurrency int `yaml:"answer_concurrency"`
}

// Timeout returns the overall session budget.
func (s SessionConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// HistoryConfig locates the session history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Logger    LoggerConfig            `yaml:"logger"`
	Chunker   ChunkerConfig           `yaml:"chunker"`
	Retriever RetrieverConfig         `yaml:"retriever"`
	Engines   map[string]EngineConfig `yaml:"engines"`
	Session   SessionConfig           `yaml:"session"`
	Questions map[string][]string     `yaml:"questions"`
	History   HistoryConfig           `yaml:"history"`
	Metrics   MetricsConfig           `yaml:"metrics"`
}

// Engine returns the engine configuration for a category.
func (c *AppConfig) Engine(cat domain.Category) EngineConfig {
	return c.Engines[string(cat)]
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	for name := range c.Engines {
		if _, err := domain.ParseCategory(name); err != nil {
			return err
		}
	}
	for name := range c.Questions {
		if _, err := domain.ParseCategory(name); err != nil {
			return err
		}
	}
	if c.Chunker.Type == "window" && c.Chunker.Overlap >= c.Chunker.ChunkSize {
		return &domain.ConfigError{Field: "chunker.overlap", Err: fmt.Errorf("overlap %d must be smaller than chunk_size %d", c.Chunker.Overlap, c.Chunker.ChunkSize)}
	}
	if c.Retriever.TopK <= 0 {
		return &domain.ConfigError{Field: "retriever.top_k", Err: errors.New("must be positive")}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docqa-history.db"
	}
	return filepath.Join(home, ".local", "share", "docqa", "history.db")
}

// Default returns the built-in configuration. Every category uses the
// offline extractive backend so a session runs without API keys.
func Default() *AppConfig {
	cfg := &AppConfig{
		Logger:  LoggerConfig{Level: "info", Format: "text"},
		Chunker: ChunkerConfig{Type: "window", ChunkSize: 500, Overlap: 50, SentencesPerChunk: 5, OverlapSentences: 1},
		Retriever: RetrieverConfig{
			TopK:        3,
			Embedder:    EmbedderConfig{Type: "tfidf"},
			VectorStore: VectorStoreConfig{Type: "memory"},
		},
		Engines:   map[string]EngineConfig{},
		Session:   SessionConfig{TimeoutSecs: 600, AnswerConcurrency: 2},
		Questions: SampleQuestions(),
		History:   HistoryConfig{Enabled: false, Path: defaultHistoryPath()},
	}
	applyConfigDefaults(cfg)
	return cfg
}

// SampleQuestions is the fixed question battery for each category.
func SampleQuestions() map[string][]string {
	return map[string][]string{
		string(domain.Foundation): {
			"What is the main topic of this document?",
			"Can you summarize the key findings?",
			"What are the conclusions mentioned?",
		},
		string(domain.Indic): {
			"इस दस्तावेज़ का मुख्य विषय क्या है?",
			"मुख्य निष्कर्ष क्या हैं?",
			"क्या सिफारिशें दी गई हैं?",
		},
		string(domain.International): {
			"Quel est le sujet principal de ce document?",
			"Quelles sont les principales conclusions?",
			"Quelles recommandations sont faites?",
		},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "text"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "window"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 3
	}
	if cfg.Retriever.Embedder.Type == "" {
		cfg.Retriever.Embedder.Type = "tfidf"
	}
	if cfg.Retriever.Embedder.Type == "openai" && cfg.Retriever.Embedder.OpenAI != nil {
		oc := cfg.Retriever.Embedder.OpenAI
		if oc.BaseURL == "" {
			oc.BaseURL = "https://api.openai.com/v1"
		}
		if oc.APIKeyEnv == "" {
			oc.APIKeyEnv = "OPENAI_API_KEY"
		}
		if oc.Model == "" {
			oc.Model = "text-embedding-3-small"
		}
		if oc.TimeoutSecs == 0 {
			oc.TimeoutSecs = 30
		}
	}
	if cfg.Retriever.VectorStore.Type == "" {
		cfg.Retriever.VectorStore.Type = "memory"
	}
	if q := cfg.Retriever.VectorStore.Qdrant; q != nil && q.CollectionPrefix == "" {
		q.CollectionPrefix = "docqa"
	}
	if cfg.Engines == nil {
		cfg.Engines = map[string]EngineConfig{}
	}
	for _, cat := range domain.Categories() {
		cfg.Engines[string(cat)] = engineDefaults(cfg.Engines[string(cat)])
	}
	if cfg.Session.TimeoutSecs == 0 {
		cfg.Session.TimeoutSecs = 600
	}
	if cfg.Session.AnswerConcurrency == 0 {
		cfg.Session.AnswerConcurrency = 2
	}
	if cfg.Questions == nil {
		cfg.Questions = SampleQuestions()
	}
	if cfg.History.Path == "" {
		cfg.History.Path = defaultHistoryPath()
	}
}

func engineDefaults(e EngineConfig) EngineConfig {
	if e.Provider == "" {
		e.Provider = "extractive"
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = 60
	}
	switch e.Provider {
	case "openai":
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.Model == "" {
			e.Model = "gpt-4o-mini"
		}
	case "ollama":
		if e.BaseURL == "" {
			e.BaseURL = "http://localhost:11434"
		}
		if e.Model == "" {
			e.Model = "llama3.1"
		}
	case "gemini":
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "GEMINI_API_KEY"
		}
		if e.Model == "" {
			e.Model = "gemini-1.5-flash"
		}
	}
	return e
}
