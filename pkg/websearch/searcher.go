// Package websearch defines the web search port and a SearXNG client.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

type Options struct {
	MaxResults int
	Language   string
	Categories []string
}

// Searcher is the web search port.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}

// SearXNGClient queries the JSON API of a SearXNG instance.
type SearXNGClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Searcher = (*SearXNGClient)(nil)

func NewSearXNGClient(baseURL string, timeout time.Duration) *SearXNGClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearXNGClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searxResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (c *SearXNGClient) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}
	if len(opts.Categories) > 0 {
		params.Set("categories", strings.Join(opts.Categories, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned status %d", resp.StatusCode)
	}

	var raw searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}

	out := &Response{Query: query}
	for _, r := range raw.Results {
		if r.URL == "" {
			continue
		}
		out.Results = append(out.Results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if opts.MaxResults > 0 && len(out.Results) >= opts.MaxResults {
			break
		}
	}
	return out, nil
}
