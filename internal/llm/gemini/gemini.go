package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docqa/internal/llm"
)

// Config configures a Gemini backend.
type Config struct {
	APIKeyEnv string
	Model     string
	// Endpoint overrides the API host, mostly for tests.
	Endpoint string
}

// Generator answers through the Gemini API.
type Generator struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Generator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		return nil, errors.New("gemini model is empty")
	}
	opts := []option.ClientOption{option.WithAPIKey(key)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: cfg.Model}, nil
}

func (g *Generator) Name() string { return "gemini:" + g.model }

func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	// GenerativeModel is cheap and carries per-call settings, so build one per call
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(req.Temperature)
	if req.System != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return responseText(resp)
}

// Close releases the underlying client.
func (g *Generator) Close() error { return g.client.Close() }

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("gemini: empty candidate (finish reason %s)", cand.FinishReason)
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

var _ llm.Generator = (*Generator)(nil)
