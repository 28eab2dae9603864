package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"

	"docqa/internal/llm"
)

// Config configures a local Ollama backend.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Generator answers through Ollama's generate endpoint.
type Generator struct {
	client *olla.Client
	model  string
}

func New(cfg Config) (*Generator, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		return nil, errors.New("ollama model is empty")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Generator{
		client: olla.NewClient(parsed, &http.Client{Timeout: timeout}),
		model:  cfg.Model,
	}, nil
}

func (g *Generator) Name() string { return "ollama:" + g.model }

func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	stream := false
	var out strings.Builder
	err := g.client.Generate(ctx, &olla.GenerateRequest{
		Model:   g.model,
		System:  req.System,
		Prompt:  req.Prompt,
		Stream:  &stream,
		Options: map[string]any{"temperature": req.Temperature},
	}, func(resp olla.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var se olla.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			// unknown model
			return "", llm.Permanent(fmt.Errorf("ollama: %w", err))
		}
		return "", fmt.Errorf("ollama: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

var _ llm.Generator = (*Generator)(nil)
