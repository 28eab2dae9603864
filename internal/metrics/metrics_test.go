package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.DocumentLoaded("indic", "error")
	m.DocumentLoaded("foundation", "ok")
	m.AnswerRecorded("foundation", "answered", 20*time.Millisecond)
	m.AnswerRecorded("foundation", "answered", 30*time.Millisecond)
	m.AnswerRecorded("foundation", "failed", time.Millisecond)
	m.CategoryFinished("indic", "skipped")
	m.SessionFinished("partial")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsLoaded.WithLabelValues("indic", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Answers.WithLabelValues("foundation", "answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues("foundation", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CategoryOutcomes.WithLabelValues("indic", "skipped")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AnswerDuration))

	expected := `
		# HELP docqa_sessions_total Sessions by outcome.
		# TYPE docqa_sessions_total counter
		docqa_sessions_total{outcome="partial"} 1
	`
	require.NoError(t, testutil.CollectAndCompare(m.Sessions, strings.NewReader(expected)))
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.SessionFinished("complete")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Sessions.WithLabelValues("complete")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DocumentLoaded("x", "ok")
		m.AnswerRecorded("x", "answered", time.Second)
		m.CategoryFinished("x", "success")
		m.SessionFinished("complete")
		assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	})
	assert.Nil(t, m.Registry())
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.AnswerRecorded("international", "insufficient_context", time.Second)
	path := filepath.Join(t.TempDir(), "docqa.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `docqa_answers_total{category="international",status="insufficient_context"} 1`)
	assert.Contains(t, string(data), "docqa_answer_duration_seconds_bucket")
}
