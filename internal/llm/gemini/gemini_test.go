package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(" La capitale "), genai.Text("est Paris. ")}},
		}},
	}
	out, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "La capitale est Paris.", out)
}

func TestResponseTextEmpty(t *testing.T) {
	_, err := responseText(nil)
	assert.Error(t, err)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finish reason")
}

func TestNewValidates(t *testing.T) {
	t.Setenv("DOCQA_TEST_GEMINI", "")
	_, err := New(context.Background(), Config{APIKeyEnv: "DOCQA_TEST_GEMINI", Model: "gemini-1.5-flash"})
	assert.Error(t, err)

	t.Setenv("DOCQA_TEST_GEMINI", "key")
	_, err = New(context.Background(), Config{APIKeyEnv: "DOCQA_TEST_GEMINI"})
	assert.Error(t, err)
}
