package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/llm"
)

func newGenerator(t *testing.T, h http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := New(Config{BaseURL: srv.URL, Model: "llama-test"})
	require.NoError(t, err)
	return g
}

func TestGenerate(t *testing.T) {
	var got map[string]any
	g := newGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama-test","response":" दिल्ली। ","done":true}` + "\n"))
	})

	out, err := g.Generate(context.Background(), llm.Request{System: "sys", Prompt: "prompt"})
	require.NoError(t, err)
	assert.Equal(t, "दिल्ली।", out)
	assert.Equal(t, "llama-test", got["model"])
	assert.Equal(t, "sys", got["system"])
	assert.Equal(t, "prompt", got["prompt"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "ollama:llama-test", g.Name())
}

func TestGenerateUnknownModelIsPermanent(t *testing.T) {
	g := newGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama-test' not found"}`))
	})
	_, err := g.Generate(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrPermanent)
}

func TestGenerateServerError(t *testing.T) {
	g := newGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"out of memory"}`))
	})
	_, err := g.Generate(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, llm.ErrPermanent)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
