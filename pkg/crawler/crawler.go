// Package crawler fetches a page and reduces it to its main content as markdown.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultMaxContentLength = 20000
	maxBodyBytes            = 5 << 20
	userAgent               = "Mozilla/5.0 (compatible; GrueneratorBot/1.0)"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

type Options struct {
	Timeout          time.Duration
	MaxContentLength int
}

type Result struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
	Truncated bool   `json:"truncated"`
}

// Crawler is the URL crawl port.
type Crawler interface {
	Crawl(ctx context.Context, url string, opts Options) (*Result, error)
}

type HTTPCrawler struct {
	client    *http.Client
	converter *md.Converter
}

var _ Crawler = (*HTTPCrawler)(nil)

func NewHTTPCrawler() *HTTPCrawler {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &HTTPCrawler{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		converter: converter,
	}
}

func (c *HTTPCrawler) Crawl(ctx context.Context, url string, opts Options) (*Result, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = defaultMaxContentLength
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	content, err := c.mainContent(doc)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("no readable content at %s", url)
	}

	result := &Result{URL: url, Title: title}
	result.Content, result.Truncated = truncate(content, opts.MaxContentLength)
	result.WordCount = len(strings.Fields(result.Content))
	return result, nil
}

// mainContent prefers main/article containers and strips page chrome otherwise.
func (c *HTTPCrawler) mainContent(doc *goquery.Document) (string, error) {
	doc.Find("script, style, noscript, iframe, form, nav, header, footer, aside").Remove()
	doc.Find(".nav, .navbar, .sidebar, .menu, .cookie, .advertisement, .share, .comments, .breadcrumb").Remove()

	sel := doc.Find("main, article, [role=main]").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	markdown, err := c.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return cleanMarkdown(markdown), nil
}

func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// truncate cuts content to at most limit runes.
func truncate(content string, limit int) (string, bool) {
	if utf8.RuneCountInString(content) <= limit {
		return content, false
	}
	runes := []rune(content)
	return string(runes[:limit]), true
}
