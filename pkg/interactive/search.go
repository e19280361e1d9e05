package interactive

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gruenerator-be/internal/constant"
	"gruenerator-be/pkg/llm"
	"gruenerator-be/pkg/store"
	"gruenerator-be/pkg/websearch"
	"gruenerator-be/pkg/workflow"

	"golang.org/x/sync/errgroup"
)

const maxPlannedQueries = 5

var knownPurposes = map[string]bool{
	"facts":          true,
	"party_position": true,
	"legal":          true,
	"news":           true,
	"examples":       true,
}

type searchQuery struct {
	Purpose string `json:"purpose"`
	Query   string `json:"query"`
}

func (w *Workflow) webSearch(ctx context.Context, s workflow.State) workflow.Outcome {
	if w.deps.Searcher == nil {
		return workflow.Continue(workflow.State{
			keySearchResults: []store.SearchResult{},
			keyMetadata:      map[string]interface{}{"searchSkipped": true},
		})
	}

	thema := workflow.GetOr(s, keyThema, "")
	details := workflow.GetOr(s, keyDetails, "")
	requestType := workflow.GetOr(s, keyRequestType, "")

	queries, planned := w.planQueries(ctx, thema, details, requestType)

	groups := make([][]store.SearchResult, len(queries))
	failures := make([]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			resp, err := w.deps.Searcher.Search(gctx, q.Query, websearch.Options{
				MaxResults: w.cfg.ResultsPerQuery,
				Language:   workflow.GetOr(s, keyLocale, "de"),
			})
			if err != nil {
				failures[i] = err.Error()
				return nil
			}
			for _, r := range resp.Results {
				groups[i] = append(groups[i], store.SearchResult{
					Title:   r.Title,
					URL:     r.URL,
					Snippet: r.Snippet,
					Purpose: q.Purpose,
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for _, f := range failures {
		if f != "" {
			failed = append(failed, f)
		}
	}
	if len(failed) > 0 {
		w.logger.Warn("INTERACTIVE", "Search queries failed", map[string]interface{}{"failures": failed})
	}

	results := InterleaveResults(groups, w.cfg.MaxSearchResults)
	meta := map[string]interface{}{
		"searchQueries":  len(queries),
		"searchPlanned":  planned,
		"searchResults":  len(results),
		"searchFailures": len(failed),
	}
	return workflow.Continue(workflow.State{
		keySearchResults: results,
		keyMetadata:      meta,
	})
}

// planQueries asks the model for purposed queries and falls back to one
// query built from topic and details.
func (w *Workflow) planQueries(ctx context.Context, thema, details, requestType string) ([]searchQuery, bool) {
	fallback := []searchQuery{{Purpose: "facts", Query: fallbackQuery(thema, details)}}

	prompt := fmt.Sprintf(constant.SearchPlannerPrompt, thema, truncate(details, 500), requestType)
	resp, err := w.deps.Provider.Chat(ctx, llm.System("", prompt),
		llm.WithTemperature(0.2), llm.WithMaxTokens(400), llm.WithRequestType("search_planning"))
	if err != nil {
		w.logger.Warn("INTERACTIVE", "Search planning failed, using fallback query", map[string]interface{}{"error": err.Error()})
		return fallback, false
	}

	var raw []searchQuery
	if err := llm.DecodeJSONArray(resp.Content, &raw); err != nil {
		w.logger.Warn("INTERACTIVE", "Search plan unparseable, using fallback query", map[string]interface{}{"error": err.Error()})
		return fallback, false
	}

	var queries []searchQuery
	seen := make(map[string]bool)
	for _, q := range raw {
		q.Query = strings.TrimSpace(q.Query)
		key := strings.ToLower(q.Query)
		if q.Query == "" || seen[key] {
			continue
		}
		seen[key] = true
		if !knownPurposes[q.Purpose] {
			q.Purpose = "facts"
		}
		queries = append(queries, q)
		if len(queries) == maxPlannedQueries {
			break
		}
	}
	if len(queries) == 0 {
		return fallback, false
	}
	return queries, true
}

func fallbackQuery(thema, details string) string {
	words := strings.Fields(details)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.TrimSpace(thema + " " + strings.Join(words, " "))
}

// InterleaveResults merges per-purpose result lists round-robin so no single
// purpose dominates, drops repeated URLs and truncates to max (0 = no limit).
func InterleaveResults(groups [][]store.SearchResult, max int) []store.SearchResult {
	var out []store.SearchResult
	seen := make(map[string]bool)

	for depth := 0; ; depth++ {
		progressed := false
		for _, group := range groups {
			if depth >= len(group) {
				continue
			}
			progressed = true
			r := group[depth]
			key := normalizeURL(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
			if max > 0 && len(out) >= max {
				return out
			}
		}
		if !progressed {
			return out
		}
	}
}

// normalizeURL maps trivially different spellings of one page to one key.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
