package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/domain"
)

// textExtractor treats file bytes as already-extracted text.
type textExtractor struct {
	calls atomic.Int32
	err   error
}

func (e *textExtractor) Extract(_ context.Context, data []byte) (string, error) {
	e.calls.Add(1)
	if e.err != nil {
		return "", e.err
	}
	return string(data), nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newStore(ex Extractor) *Store {
	log, _ := test.NewNullLogger()
	return New(ex, chunker.NewWindowChunker(20, 5), log)
}

func TestLoadChunksDocument(t *testing.T) {
	path := writeFile(t, "en.pdf", "Solar power adoption grew quickly.\r\n\r\n\r\nCosts   fell.")
	s := newStore(&textExtractor{})

	doc, err := s.Load(context.Background(), path, domain.Foundation)
	require.NoError(t, err)

	assert.Equal(t, domain.Foundation, doc.Category)
	assert.Equal(t, path, doc.Path)
	assert.True(t, strings.HasPrefix(doc.ID, "foundation-"))
	assert.Len(t, doc.ContentHash, 64)
	assert.Equal(t, "Solar power adoption grew quickly.\n\nCosts fell.", doc.Content)
	require.NotEmpty(t, doc.Chunks)
	for i, ch := range doc.Chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, doc.ID, ch.DocumentID)
	}
}

func TestLoadFailures(t *testing.T) {
	boom := errors.New("corrupt xref")
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		ex      *textExtractor
		wantErr error
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.pdf") },
			ex:      &textExtractor{},
			wantErr: os.ErrNotExist,
		},
		{
			name:    "empty extraction",
			path:    func(t *testing.T) string { return writeFile(t, "blank.pdf", " \n\t ") },
			ex:      &textExtractor{},
			wantErr: domain.ErrEmptyExtraction,
		},
		{
			name:    "extractor failure",
			path:    func(t *testing.T) string { return writeFile(t, "bad.pdf", "x") },
			ex:      &textExtractor{err: boom},
			wantErr: boom,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := tc.path(t)
			_, err := newStore(tc.ex).Load(context.Background(), path, domain.Indic)
			require.Error(t, err)
			var loadErr *domain.DocumentLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, domain.Indic, loadErr.Category)
			assert.Equal(t, path, loadErr.Path)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newStore(&textExtractor{}).Load(ctx, writeFile(t, "a.pdf", "text"), domain.Foundation)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadCachesUntilContentChanges(t *testing.T) {
	path := writeFile(t, "fr.pdf", "Première version du document.")
	ex := &textExtractor{}
	s := newStore(ex)
	ctx := context.Background()

	first, err := s.Load(ctx, path, domain.International)
	require.NoError(t, err)
	second, err := s.Load(ctx, path, domain.International)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), ex.calls.Load())

	// Same path under another category is a separate entry.
	_, err = s.Load(ctx, path, domain.Foundation)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ex.calls.Load())
	assert.Equal(t, 2, s.Cached())

	require.NoError(t, os.WriteFile(path, []byte("Deuxième version."), 0o644))
	third, err := s.Load(ctx, path, domain.International)
	require.NoError(t, err)
	assert.NotEqual(t, first.ContentHash, third.ContentHash)
	assert.Equal(t, "Deuxième version.", third.Content)
	assert.Equal(t, int32(3), ex.calls.Load())
}

func TestInvalidateAndPurge(t *testing.T) {
	path := writeFile(t, "hi.pdf", "यह एक परीक्षण दस्तावेज़ है।")
	ex := &textExtractor{}
	s := newStore(ex)
	ctx := context.Background()

	_, err := s.Load(ctx, path, domain.Indic)
	require.NoError(t, err)
	s.Invalidate(path, domain.Indic)
	assert.Equal(t, 0, s.Cached())

	_, err = s.Load(ctx, path, domain.Indic)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ex.calls.Load())

	s.Purge()
	assert.Equal(t, 0, s.Cached())
}

func TestPDFExtractorRejectsNonPDF(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), []byte("plain text, not a pdf"))
	assert.ErrorIs(t, err, domain.ErrNotPDF)
}

// onePagePDF builds a minimal PDF whose single page shows text in Helvetica.
func onePagePDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFExtractorExtractsText(t *testing.T) {
	text, err := NewPDFExtractor().Extract(context.Background(), onePagePDF("Solar power grew quickly"))
	require.NoError(t, err)
	assert.Contains(t, text, "Solar power grew quickly")
}

func TestPDFExtractorMalformed(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), []byte("%PDF-1.4\ngarbage without xref"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotPDF)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapse spaces", in: "a  \t b", want: "a b"},
		{name: "crlf and blank lines", in: "a\r\n\r\n\r\n\r\nb", want: "a\n\nb"},
		{name: "control chars", in: "a\x00b\x07c", want: "abc"},
		{name: "nbsp", in: "a\u00a0\u00a0b", want: "a b"},
		{name: "nfc compose", in: "e\u0301te\u0301", want: "\u00e9t\u00e9"},
		{name: "trim", in: "  \n x \n  ", want: "x"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}
