package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"latin", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"danda", "पहला वाक्य। दूसरा वाक्य॥ तीसरा", []string{"पहला वाक्य।", "दूसरा वाक्य॥", "तीसरा"}},
		{"trailing text", "Done. and more", []string{"Done.", "and more"}},
		{"paragraphs", "Heading\nBody line.", []string{"Heading", "Body line."}},
		{"empty", "  ", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sentences(tc.in))
		})
	}
}

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	text := "Cats sleep a lot. Dogs bark loudly. Cats purr when cats are happy. Birds sing."
	s := NewFrequencySummarizer()
	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Cats sleep a lot. Cats purr when cats are happy.", out)
}

func TestSummarizeForPrefersQuerySentences(t *testing.T) {
	text := "Cats sleep a lot. Dogs bark loudly. Cats purr when cats are happy. Birds sing at dawn."
	s := NewFrequencySummarizer()
	out, err := s.SummarizeFor(text, "When do birds sing?", 1)
	require.NoError(t, err)
	assert.Equal(t, "Birds sing at dawn.", out)
}

func TestSummarizeForHindi(t *testing.T) {
	text := "दिल्ली भारत की राजधानी है। गंगा एक नदी है। मुंबई एक बड़ा शहर है।"
	s := NewFrequencySummarizer()
	out, err := s.SummarizeFor(text, "भारत की राजधानी क्या है?", 1)
	require.NoError(t, err)
	assert.Equal(t, "दिल्ली भारत की राजधानी है।", out)
}

func TestSummarizeWithoutTerminators(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("just a fragment", 3)
	require.NoError(t, err)
	assert.Equal(t, "just a fragment", out)
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 2, Overlap("The capital of France is Paris.", "capital of France?"))
	assert.Equal(t, 0, Overlap("Nothing here.", "capital"))
}
