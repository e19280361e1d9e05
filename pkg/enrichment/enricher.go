// Package enrichment gathers extra context for final generation: pages behind
// URLs the user mentioned and entries from an optional knowledge source.
package enrichment

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/pkg/crawler"

	"golang.org/x/sync/errgroup"
)

var urlRe = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// Clarification is the structured reading of the user's answers.
type Clarification struct {
	Scope    string   `json:"scope,omitempty"`
	Audience string   `json:"audience,omitempty"`
	Tone     string   `json:"tone,omitempty"`
	Facts    []string `json:"facts,omitempty"`
}

type Request struct {
	Thema         string
	Details       string
	RequestType   string
	Answers       map[string]string
	Clarification Clarification
	Locale        string
}

type Document struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
}

type Knowledge struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

type Result struct {
	Documents   []Document  `json:"documents"`
	Knowledge   []Knowledge `json:"knowledge"`
	URLsCrawled []string    `json:"urlsCrawled"`
}

// Empty reports whether nothing was gathered.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Documents) == 0 && len(r.Knowledge) == 0)
}

// Enricher is the enrichment port.
type Enricher interface {
	Enrich(ctx context.Context, req Request, userID string) (*Result, error)
}

// KnowledgeSource looks up stored party knowledge for a topic.
type KnowledgeSource interface {
	Lookup(ctx context.Context, userID, query string) ([]Knowledge, error)
}

type Options struct {
	MaxURLs          int
	CrawlTimeout     time.Duration
	MaxContentLength int
}

// DefaultEnricher crawls mentioned URLs and consults a KnowledgeSource.
// Individual failures are logged and skipped.
type DefaultEnricher struct {
	crawler   crawler.Crawler
	knowledge KnowledgeSource
	opts      Options
	logger    logger.ILogger
}

var _ Enricher = (*DefaultEnricher)(nil)

func NewDefaultEnricher(c crawler.Crawler, knowledge KnowledgeSource, opts Options, log logger.ILogger) *DefaultEnricher {
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = 3
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &DefaultEnricher{
		crawler:   c,
		knowledge: knowledge,
		opts:      opts,
		logger:    log,
	}
}

func (e *DefaultEnricher) Enrich(ctx context.Context, req Request, userID string) (*Result, error) {
	result := &Result{}
	urls := ExtractURLs(req.Details, req.Answers, e.opts.MaxURLs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	docs := make([]*Document, len(urls))
	if e.crawler != nil {
		for i, u := range urls {
			g.Go(func() error {
				res, err := e.crawler.Crawl(gctx, u, crawler.Options{
					Timeout:          e.opts.CrawlTimeout,
					MaxContentLength: e.opts.MaxContentLength,
				})
				if err != nil {
					e.logger.Warn("ENRICHMENT", "URL crawl failed", map[string]interface{}{"url": u, "error": err.Error()})
					return nil
				}
				docs[i] = &Document{URL: u, Title: res.Title, Content: res.Content, WordCount: res.WordCount}
				return nil
			})
		}
	}

	if e.knowledge != nil {
		g.Go(func() error {
			query := strings.TrimSpace(req.Thema + " " + req.Clarification.Scope)
			entries, err := e.knowledge.Lookup(gctx, userID, query)
			if err != nil {
				e.logger.Warn("ENRICHMENT", "Knowledge lookup failed", map[string]interface{}{"error": err.Error()})
				return nil
			}
			mu.Lock()
			result.Knowledge = append(result.Knowledge, entries...)
			mu.Unlock()
			return nil
		})
	}

	// Branches swallow their own errors, so Wait only returns nil.
	_ = g.Wait()

	for _, d := range docs {
		if d != nil {
			result.Documents = append(result.Documents, *d)
			result.URLsCrawled = append(result.URLsCrawled, d.URL)
		}
	}
	return result, nil
}

// ExtractURLs returns distinct http(s) URLs found in details and answers, in
// order of appearance (answers sorted by question id), at most limit.
func ExtractURLs(details string, answers map[string]string, limit int) []string {
	texts := []string{details}
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		texts = append(texts, answers[id])
	}

	seen := make(map[string]bool)
	var out []string
	for _, text := range texts {
		for _, u := range urlRe.FindAllString(text, -1) {
			u = strings.TrimRight(u, ".,;:!?")
			if seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, u)
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}
