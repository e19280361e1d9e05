package crawler

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

const page = `<html><head><title>Radverkehr in Münster</title><script>var x=1;</script></head>
<body>
<nav><a href="/">Start</a></nav>
<main>
<h1>Radverkehr</h1>
<p>Die Stadt plant <strong>neue Radwege</strong> entlang der Promenade.</p>
</main>
<footer>Impressum</footer>
</body></html>`

func TestHTTPCrawlerExtractsMainContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	res, err := NewHTTPCrawler().Crawl(context.Background(), srv.URL, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Radverkehr in Münster", res.Title)
	assert.Contains(t, res.Content, "# Radverkehr")
	assert.Contains(t, res.Content, "**neue Radwege**")
	assert.NotContains(t, res.Content, "Impressum")
	assert.NotContains(t, res.Content, "Start")
	assert.Greater(t, res.WordCount, 3)
	assert.False(t, res.Truncated)
}

func TestHTTPCrawlerTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><article><p>" + strings.Repeat("wort ", 200) + "</p></article></body></html>"))
	}))
	defer srv.Close()

	res, err := NewHTTPCrawler().Crawl(context.Background(), srv.URL, Options{MaxContentLength: 50})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, len([]rune(res.Content)), 50)
}

func TestHTTPCrawlerErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		opts    Options
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
		},
		{
			name: "pdf",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
				_, _ = w.Write([]byte("%PDF"))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				_, _ = w.Write([]byte(page))
			},
			opts: Options{Timeout: 20 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPCrawler().Crawl(context.Background(), srv.URL, tt.opts)
			assert.Error(t, err)
		})
	}
}
