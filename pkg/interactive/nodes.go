package interactive

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gruenerator-be/internal/constant"
	"gruenerator-be/pkg/enrichment"
	"gruenerator-be/pkg/llm"
	"gruenerator-be/pkg/prompt"
	"gruenerator-be/pkg/store"
	"gruenerator-be/pkg/workflow"
)

func (w *Workflow) initiate(ctx context.Context, s workflow.State) workflow.Outcome {
	req := InitiateRequest{
		UserID:      workflow.GetOr(s, keyUserID, ""),
		Thema:       workflow.GetOr(s, keyThema, ""),
		Details:     workflow.GetOr(s, keyDetails, ""),
		RequestType: workflow.GetOr(s, keyRequestType, ""),
	}
	if err := req.Validate(); err != nil {
		return failed(errorTypeValidation, err.Error())
	}

	update := workflow.State{
		keyConversationState: store.StateInitiated,
		keyMetadata: map[string]interface{}{
			"initiatedAt": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if workflow.GetOr(s, keySessionID, "") == "" {
		update[keySessionID] = NewSessionID()
	}
	if workflow.GetOr(s, keyLocale, "") == "" {
		update[keyLocale] = prompt.DefaultLocale
	}
	if workflow.GetOr(s, keyGeneratorType, "") == "" {
		update[keyGeneratorType] = workflow.GetOr(s, keyRequestType, "")
	}
	return workflow.Continue(update)
}

func (w *Workflow) analyzeAnswers(ctx context.Context, s workflow.State) workflow.Outcome {
	label := RoundLabel(workflow.GetOr(s, keyQuestionRound, 1))
	all := workflow.GetOr(s, keyAnswers, map[string]interface{}{})

	update := workflow.State{keyConversationState: store.StateAnswersReceived}

	round, ok := workflow.Get[map[string]interface{}](workflow.State(all), label)
	if !ok {
		// Resumed without a state update: take the answers from the resume payload.
		if resumed, ok := workflow.Get[map[string]interface{}](s, workflow.ResumeKey); ok {
			round = resumed
			update[keyAnswers] = map[string]interface{}{label: resumed}
		}
	}

	update[keyMetadata] = map[string]interface{}{
		"answersReceivedAt": time.Now().UTC().Format(time.RFC3339),
		"answerCount":       len(round),
	}
	return workflow.Continue(update)
}

func (w *Workflow) summarizeAnswers(ctx context.Context, s workflow.State) workflow.Outcome {
	skip := w.deps.Catalog.SkipOption(workflow.GetOr(s, keyLocale, prompt.DefaultLocale))
	transcript := BuildTranscript(
		workflow.GetOr(s, keyQuestions, []store.Question{}),
		flattenAnswers(workflow.GetOr(s, keyAnswers, map[string]interface{}{})),
		skip,
	)

	update := workflow.State{keyConversationState: store.StateGenerating}
	if transcript == "" {
		update[keyAnswerSummary] = ""
		return workflow.Continue(update)
	}

	resp, err := w.deps.Provider.Chat(ctx,
		llm.System("", fmt.Sprintf(constant.AnswerSummaryPrompt, workflow.GetOr(s, keyThema, ""), transcript)),
		llm.WithTemperature(0.3), llm.WithMaxTokens(600), llm.WithRequestType("answer_summary"))

	summary := ""
	if err == nil {
		summary = strings.TrimSpace(resp.Content)
	}
	if summary == "" {
		fields := map[string]interface{}{"session_id": workflow.GetOr(s, keySessionID, "")}
		if err != nil {
			fields["error"] = err.Error()
		}
		w.logger.Warn("INTERACTIVE", "Answer summary failed, using transcript", fields)
		update[keyAnswerSummary] = transcript
		update[keyMetadata] = map[string]interface{}{"summaryFallback": true}
		return workflow.Continue(update)
	}

	update[keyAnswerSummary] = summary
	return workflow.Continue(update)
}

// BuildTranscript renders answered questions as "Frage: ...\nAntwort: ..."
// blocks. Empty answers and answers equal to skip are left out.
func BuildTranscript(questions []store.Question, answers map[string]interface{}, skip string) string {
	var blocks []string
	used := make(map[string]bool, len(answers))

	write := func(id, text string) {
		answer := answerText(answers[id], skip)
		if answer == "" {
			return
		}
		blocks = append(blocks, fmt.Sprintf("Frage: %s\nAntwort: %s", text, answer))
	}

	for _, q := range questions {
		used[q.ID] = true
		write(q.ID, q.Text)
	}
	// Answers to questions of earlier rounds.
	var rest []string
	for id := range answers {
		if !used[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		write(id, id)
	}
	return strings.Join(blocks, "\n\n")
}

func answerText(v interface{}, skip string) string {
	isSkip := func(s string) bool {
		s = strings.TrimSpace(s)
		return s == "" || strings.EqualFold(s, skip)
	}
	switch a := v.(type) {
	case string:
		if isSkip(a) {
			return ""
		}
		return strings.TrimSpace(a)
	case []string:
		var kept []string
		for _, item := range a {
			if !isSkip(item) {
				kept = append(kept, strings.TrimSpace(item))
			}
		}
		return strings.Join(kept, ", ")
	case []interface{}:
		var kept []string
		for _, item := range a {
			if s, ok := item.(string); ok && !isSkip(s) {
				kept = append(kept, strings.TrimSpace(s))
			}
		}
		return strings.Join(kept, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(a)
	}
}

// flattenAnswers merges all rounds into one questionId -> answer map. Later
// rounds win.
func flattenAnswers(all map[string]interface{}) map[string]interface{} {
	labels := make([]string, 0, len(all))
	for label := range all {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return roundNumber(labels[i]) < roundNumber(labels[j]) })

	out := make(map[string]interface{})
	for _, label := range labels {
		round, ok := workflow.Get[map[string]interface{}](workflow.State(all), label)
		if !ok {
			continue
		}
		for id, v := range round {
			out[id] = v
		}
	}
	return out
}

func roundNumber(label string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(label, "round"))
	if err != nil {
		return 0
	}
	return n
}

func (w *Workflow) documentEnrichment(ctx context.Context, s workflow.State) workflow.Outcome {
	skip := w.deps.Catalog.SkipOption(workflow.GetOr(s, keyLocale, prompt.DefaultLocale))
	flat := make(map[string]string)
	for id, v := range flattenAnswers(workflow.GetOr(s, keyAnswers, map[string]interface{}{})) {
		if text := answerText(v, skip); text != "" {
			flat[id] = text
		}
	}
	clarification := ExtractClarification(workflow.GetOr(s, keyQuestions, []store.Question{}), flat)

	update := workflow.State{
		keyConversationState: store.StateGenerating,
	}
	if w.deps.Enricher == nil {
		update[keyEnrichedContext] = map[string]interface{}{"clarification": clarification}
		return workflow.Continue(update)
	}

	result, err := w.deps.Enricher.Enrich(ctx, enrichment.Request{
		Thema:         workflow.GetOr(s, keyThema, ""),
		Details:       workflow.GetOr(s, keyDetails, ""),
		RequestType:   workflow.GetOr(s, keyRequestType, ""),
		Answers:       flat,
		Clarification: clarification,
		Locale:        workflow.GetOr(s, keyLocale, prompt.DefaultLocale),
	}, workflow.GetOr(s, keyUserID, ""))
	if err != nil {
		w.logger.Warn("INTERACTIVE", "Enrichment failed, continuing with empty context", map[string]interface{}{
			"session_id": workflow.GetOr(s, keySessionID, ""),
			"error":      err.Error(),
		})
		update[keyEnrichedContext] = map[string]interface{}{"clarification": clarification}
		update[keyMetadata] = map[string]interface{}{"enrichmentFailed": true, "enrichmentError": err.Error()}
		return workflow.Continue(update)
	}

	update[keyEnrichedContext] = map[string]interface{}{
		"clarification": clarification,
		"documents":     result.Documents,
		"knowledge":     result.Knowledge,
		"urlsCrawled":   result.URLsCrawled,
	}
	update[keyMetadata] = map[string]interface{}{
		"enrichedDocuments": len(result.Documents),
		"enrichedKnowledge": len(result.Knowledge),
	}
	return workflow.Continue(update)
}

// ExtractClarification maps answers onto scope, audience and tone by the type
// of the question they answer. Everything else counts as a fact.
func ExtractClarification(questions []store.Question, answers map[string]string) enrichment.Clarification {
	types := make(map[string]string, len(questions))
	for _, q := range questions {
		types[q.ID] = q.Type
	}
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var c enrichment.Clarification
	for _, id := range ids {
		answer := answers[id]
		switch types[id] {
		case "scope":
			c.Scope = answer
		case "audience":
			c.Audience = answer
		case "tone":
			c.Tone = answer
		default:
			c.Facts = append(c.Facts, answer)
		}
	}
	return c
}

func (w *Workflow) finalGeneration(ctx context.Context, s workflow.State) workflow.Outcome {
	kind := workflow.GetOr(s, keyRequestType, "")
	if !w.deps.Catalog.Has(kind) {
		kind = workflow.GetOr(s, keyGeneratorType, kind)
	}

	enriched := workflow.State(workflow.GetOr(s, keyEnrichedContext, map[string]interface{}{}))
	var sources []prompt.Source
	for _, r := range workflow.GetOr(s, keySearchResults, []store.SearchResult{}) {
		content := r.Snippet
		if r.FullContent {
			content = r.Content
		}
		sources = append(sources, prompt.Source{Title: r.Title, URL: r.URL, Content: content})
	}
	for _, d := range workflow.GetOr(enriched, "documents", []enrichment.Document{}) {
		sources = append(sources, prompt.Source{Title: d.Title, URL: d.URL, Content: d.Content})
	}
	var knowledge []prompt.Source
	for _, k := range workflow.GetOr(enriched, "knowledge", []enrichment.Knowledge{}) {
		knowledge = append(knowledge, prompt.Source{Title: k.Title, URL: k.Source, Content: k.Content})
	}

	assembled, err := w.deps.Assembler.Assemble(prompt.Context{
		Kind:          kind,
		Locale:        workflow.GetOr(s, keyLocale, prompt.DefaultLocale),
		Thema:         workflow.GetOr(s, keyThema, ""),
		Details:       workflow.GetOr(s, keyDetails, ""),
		AnswerSummary: workflow.GetOr(s, keyAnswerSummary, ""),
		Sources:       sources,
		Knowledge:     knowledge,
	})
	if err != nil {
		return failed(errorTypeGeneration, err.Error())
	}

	opts := []llm.Option{llm.WithTemperature(w.cfg.Temperature), llm.WithRequestType("interactive_" + kind)}
	if w.cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(w.cfg.MaxTokens))
	}
	if len(assembled.Tools) > 0 {
		opts = append(opts, llm.WithTools(assembled.Tools...))
	}

	resp, err := w.deps.Provider.Chat(ctx, assembled.Chat(), opts...)
	if err != nil {
		w.logger.Error("INTERACTIVE", "Final generation failed", map[string]interface{}{
			"session_id": workflow.GetOr(s, keySessionID, ""),
			"kind":       kind,
			"error":      err.Error(),
		})
		return failed(errorTypeGeneration, err.Error())
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return failed(errorTypeGeneration, llm.ErrEmptyResponse.Error())
	}

	return workflow.Continue(workflow.State{
		keyConversationState: store.StateCompleted,
		keyFinalResult:       content,
		keyMetadata: map[string]interface{}{
			"completedAt":    time.Now().UTC().Format(time.RFC3339),
			"generationKind": kind,
			"sourcesUsed":    len(sources),
		},
	})
}

// failed is the terminal update every node returns on an unrecoverable error.
func failed(errorType, message string) workflow.Outcome {
	return workflow.Continue(workflow.State{
		keyConversationState: store.StateError,
		keyError:             message,
		keyErrorType:         errorType,
		keyMetadata:          map[string]interface{}{"failedAt": time.Now().UTC().Format(time.RFC3339)},
	})
}
