package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title> Go Concurrency </title>
  <meta name="description" content="Notes on goroutines">
  <style>body { color: red; }</style>
  <script>var tracking = "ignore me";</script>
</head>
<body>
  <h1>Goroutines</h1>
  <p>Goroutines are lightweight threads managed by the Go runtime.</p>
  <p>Channels   connect goroutines.</p>
  <noscript>Enable JavaScript</noscript>
</body>
</html>`

func newPageServer(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebLoader_LoadHTML(t *testing.T) {
	srv := newPageServer(t, "text/html; charset=utf-8", samplePage)
	l := NewWebLoader(Config{Timeout: time.Second})

	docs, err := l.Load(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, srv.URL+"/page", doc.Source)
	assert.Equal(t, "Go Concurrency", doc.Title())
	assert.Equal(t, srv.URL+"/page", doc.Metadata["source"])
	assert.Equal(t, "Notes on goroutines", doc.Metadata["description"])
	assert.Equal(t, "en", doc.Metadata["language"])

	assert.Contains(t, doc.Content, "Goroutines are lightweight threads managed by the Go runtime.")
	assert.Contains(t, doc.Content, "Channels connect goroutines.")
	assert.NotContains(t, doc.Content, "tracking")
	assert.NotContains(t, doc.Content, "color: red")
	assert.NotContains(t, doc.Content, "Enable JavaScript")
}

func TestWebLoader_DocumentIDIsStable(t *testing.T) {
	srv := newPageServer(t, "text/html", samplePage)
	l := NewWebLoader(Config{})

	first, err := l.Load(context.Background(), srv.URL)
	require.NoError(t, err)
	second, err := l.Load(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.NotEmpty(t, first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestWebLoader_PlainText(t *testing.T) {
	srv := newPageServer(t, "text/plain", "line one\r\n\r\n\r\n\r\nline   two")
	l := NewWebLoader(Config{})

	docs, err := l.Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "line one\n\nline two", docs[0].Content)
	assert.Empty(t, docs[0].Title())
}

func TestWebLoader_Errors(t *testing.T) {
	pdf := newPageServer(t, "application/pdf", "%PDF-1.4")
	big := newPageServer(t, "text/html", strings.Repeat("a", 8192))

	tests := []struct {
		name    string
		loader  *WebLoader
		url     string
		wantErr error
	}{
		{name: "unsupported scheme", loader: NewWebLoader(Config{}), url: "ftp://example.com/file", wantErr: ErrInvalidURL},
		{name: "relative url", loader: NewWebLoader(Config{}), url: "/just/a/path", wantErr: ErrInvalidURL},
		{name: "unsupported content", loader: NewWebLoader(Config{}), url: pdf.URL, wantErr: ErrUnsupportedContent},
		{name: "too large", loader: NewWebLoader(Config{MaxBytes: 1024}), url: big.URL, wantErr: ErrPageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.loader.Load(context.Background(), tt.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWebLoader_HTTPStatus(t *testing.T) {
	srv := newPageServer(t, "text/html", samplePage)
	l := NewWebLoader(Config{})

	_, err := l.Load(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
