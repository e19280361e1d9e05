package interactive

import (
	"context"
	"fmt"
	"strings"

	"gruenerator-be/internal/constant"
	"gruenerator-be/pkg/crawler"
	"gruenerator-be/pkg/llm"
	"gruenerator-be/pkg/store"
	"gruenerator-be/pkg/workflow"

	"golang.org/x/sync/errgroup"
)

type crawlSelection struct {
	Selected []struct {
		URL    string `json:"url"`
		Reason string `json:"reason"`
	} `json:"selected"`
	Rationale string `json:"rationale"`
}

func (w *Workflow) intelligentCrawler(ctx context.Context, s workflow.State) workflow.Outcome {
	results := workflow.GetOr(s, keySearchResults, []store.SearchResult{})
	candidates := results
	if len(candidates) > w.cfg.CrawlCandidates {
		candidates = candidates[:w.cfg.CrawlCandidates]
	}

	selected, rationale, err := w.selectURLs(ctx, workflow.GetOr(s, keyThema, ""), candidates)
	fallback := err != nil || len(selected) == 0
	if fallback {
		fields := map[string]interface{}{"session_id": workflow.GetOr(s, keySessionID, "")}
		if err != nil {
			fields["error"] = err.Error()
		}
		w.logger.Warn("INTERACTIVE", "Crawl selection unusable, taking top results", fields)

		selected = nil
		for _, c := range candidates {
			if len(selected) == w.cfg.MaxCrawlURLs {
				break
			}
			selected = append(selected, c.URL)
		}
		rationale = ""
	}

	return workflow.Continue(workflow.State{
		keyCrawlSelection: selected,
		keyMetadata: map[string]interface{}{
			"crawlSelected":  len(selected),
			"crawlRationale": rationale,
			"crawlFallback":  fallback,
		},
	})
}

// selectURLs asks the model for at most MaxCrawlURLs candidates. URLs that
// are not among the candidates are discarded.
func (w *Workflow) selectURLs(ctx context.Context, thema string, candidates []store.SearchResult) ([]string, string, error) {
	var list strings.Builder
	known := make(map[string]string, len(candidates))
	for i, c := range candidates {
		fmt.Fprintf(&list, "%d. %s\n   %s\n   %s\n", i+1, c.Title, c.URL, truncate(c.Snippet, 300))
		known[normalizeURL(c.URL)] = c.URL
	}

	resp, err := w.deps.Provider.Chat(ctx,
		llm.System("", fmt.Sprintf(constant.CrawlSelectionPrompt, thema, w.cfg.MaxCrawlURLs, list.String())),
		llm.WithTemperature(0.1), llm.WithMaxTokens(500), llm.WithRequestType("crawl_selection"))
	if err != nil {
		return nil, "", err
	}

	var sel crawlSelection
	if err := llm.DecodeJSONObject(resp.Content, &sel); err != nil {
		return nil, "", err
	}

	var out []string
	taken := make(map[string]bool)
	for _, item := range sel.Selected {
		key := normalizeURL(item.URL)
		original, ok := known[key]
		if !ok || taken[key] {
			continue
		}
		taken[key] = true
		out = append(out, original)
		if len(out) == w.cfg.MaxCrawlURLs {
			break
		}
	}
	return out, sel.Rationale, nil
}

func (w *Workflow) contentEnricher(ctx context.Context, s workflow.State) workflow.Outcome {
	results := workflow.GetOr(s, keySearchResults, []store.SearchResult{})
	selected := workflow.GetOr(s, keyCrawlSelection, []string{})
	if len(selected) == 0 {
		return workflow.Continue(nil)
	}

	pages := make([]*crawler.Result, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range selected {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, w.cfg.CrawlTimeout)
			defer cancel()

			page, err := w.deps.Crawler.Crawl(cctx, u, crawler.Options{
				Timeout:          w.cfg.CrawlTimeout,
				MaxContentLength: w.cfg.MaxContentLength,
			})
			if err != nil {
				w.logger.Warn("INTERACTIVE", "Page crawl failed, keeping snippet", map[string]interface{}{"url": u, "error": err.Error()})
				return nil
			}
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()

	byURL := make(map[string]*crawler.Result, len(pages))
	for i, p := range pages {
		if p != nil && strings.TrimSpace(p.Content) != "" {
			byURL[normalizeURL(selected[i])] = p
		}
	}

	merged := make([]store.SearchResult, len(results))
	for i, r := range results {
		if p, ok := byURL[normalizeURL(r.URL)]; ok {
			r.Content = p.Content
			r.WordCount = p.WordCount
			r.FullContent = true
		}
		merged[i] = r
	}

	return workflow.Continue(workflow.State{
		keySearchResults: merged,
		keyMetadata: map[string]interface{}{
			"crawledPages":  len(byURL),
			"crawlFailures": len(selected) - len(byURL),
		},
	})
}
