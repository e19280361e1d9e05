package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gruenerator-be/internal/constant"
	"gruenerator-be/pkg/llm"
	"gruenerator-be/pkg/store"
	"gruenerator-be/pkg/workflow"
)

type questionDecision struct {
	NeedsClarification bool             `json:"needsClarification"`
	Reason             string           `json:"reason"`
	Questions          []store.Question `json:"questions"`
}

var clarifyingTool = llm.Tool{
	Name:        ClarifyingToolName,
	Description: "Stellt der Person Rückfragen, bevor der Text geschrieben wird.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"needsClarification": map[string]interface{}{"type": "boolean"},
			"reason":             map[string]interface{}{"type": "string"},
			"questions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":               map[string]interface{}{"type": "string"},
						"text":             map[string]interface{}{"type": "string"},
						"type":             map[string]interface{}{"type": "string"},
						"options":          map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"optionEmojis":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"allowCustom":      map[string]interface{}{"type": "boolean"},
						"allowMultiSelect": map[string]interface{}{"type": "boolean"},
						"placeholder":      map[string]interface{}{"type": "string"},
					},
					"required": []string{"text", "options"},
				},
			},
		},
		"required": []string{"needsClarification"},
	},
}

func (w *Workflow) generateQuestions(ctx context.Context, s workflow.State) workflow.Outcome {
	requestType := workflow.GetOr(s, keyRequestType, "")
	results := workflow.GetOr(s, keySearchResults, []store.SearchResult{})

	decision, err := w.decideQuestions(ctx, s, results)
	if err != nil {
		// Questions are optional; a broken model answer must not block generation.
		w.logger.Warn("INTERACTIVE", "Question generation failed, continuing without questions", map[string]interface{}{
			"session_id": workflow.GetOr(s, keySessionID, ""),
			"error":      err.Error(),
		})
		return workflow.Continue(workflow.State{
			keyConversationState:  store.StateReadyToGenerate,
			keyNeedsClarification: false,
			keyQuestions:          []store.Question{},
			keyMetadata:           map[string]interface{}{"questionGenerationFailed": true},
		})
	}

	var questions []store.Question
	if decision.NeedsClarification {
		questions = append(questions, w.deps.Catalog.StaticQuestions(requestType)...)
		for i := range decision.Questions {
			decision.Questions[i].Source = store.SourceAI
		}
		questions = append(questions, capQuestions(decision.Questions, w.cfg.MaxQuestions)...)
		questions = NormalizeQuestions(questions)
	}

	state := store.StateReadyToGenerate
	if decision.NeedsClarification && len(questions) > 0 {
		state = store.StateQuestionsGenerated
	}
	if questions == nil {
		questions = []store.Question{}
	}

	return workflow.Continue(workflow.State{
		keyConversationState:   state,
		keyNeedsClarification:  decision.NeedsClarification,
		keyClarificationReason: decision.Reason,
		keyQuestions:           questions,
		keyMetadata: map[string]interface{}{
			"clarificationReason": decision.Reason,
			"questionCount":       len(questions),
		},
	})
}

func (w *Workflow) decideQuestions(ctx context.Context, s workflow.State, results []store.SearchResult) (*questionDecision, error) {
	userPrompt := fmt.Sprintf(constant.QuestionGenerationPrompt,
		w.deps.Catalog.Generator(workflow.GetOr(s, keyRequestType, "")).Title,
		workflow.GetOr(s, keyThema, ""),
		workflow.GetOr(s, keyDetails, ""),
		searchContext(results),
		w.cfg.MaxQuestions,
	)

	resp, err := w.deps.Provider.Chat(ctx, llm.System("", userPrompt),
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(1500),
		llm.WithRequestType("question_generation"),
		llm.WithTools(clarifyingTool),
	)
	if err != nil {
		return nil, err
	}

	var decision questionDecision
	if call, ok := resp.ToolCall(ClarifyingToolName); ok {
		if err := json.Unmarshal([]byte(call.Arguments), &decision); err != nil {
			return nil, fmt.Errorf("decode tool arguments: %w", err)
		}
		return &decision, nil
	}
	if err := llm.DecodeJSONObject(resp.Content, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

func searchContext(results []store.SearchResult) string {
	if len(results) == 0 {
		return "(keine Recherche-Ergebnisse)"
	}
	var b strings.Builder
	for i, r := range results {
		text := r.Snippet
		if r.Content != "" {
			text = truncate(r.Content, 600)
		}
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, r.Title, text)
	}
	return b.String()
}

func capQuestions(qs []store.Question, max int) []store.Question {
	var out []store.Question
	for _, q := range qs {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		out = append(out, q)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// NormalizeQuestions assigns missing or duplicate ids (q1, q2, ...) and makes
// optionEmojis exactly as long as options, padding with PlaceholderEmoji.
func NormalizeQuestions(qs []store.Question) []store.Question {
	out := make([]store.Question, len(qs))
	seen := make(map[string]bool, len(qs))
	for i, q := range qs {
		if q.ID == "" || seen[q.ID] {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		seen[q.ID] = true
		if q.Type == "" {
			q.Type = "general"
		}
		if q.Options == nil {
			q.Options = []string{}
		}

		emojis := make([]string, len(q.Options))
		for j := range emojis {
			if j < len(q.OptionEmojis) && q.OptionEmojis[j] != "" {
				emojis[j] = q.OptionEmojis[j]
			} else {
				emojis[j] = PlaceholderEmoji
			}
		}
		q.OptionEmojis = emojis
		out[i] = q
	}
	return out
}

func (w *Workflow) awaitAnswers(ctx context.Context, s workflow.State) workflow.Outcome {
	round := workflow.GetOr(s, keyQuestionRound, 0) + 1
	questions := workflow.GetOr(s, keyQuestions, []store.Question{})

	payload := QuestionsPayload{
		SessionID:     workflow.GetOr(s, keySessionID, ""),
		QuestionRound: round,
		Questions:     questions,
		Reason:        workflow.GetOr(s, keyClarificationReason, ""),
	}
	return workflow.Suspend(payload, workflow.State{
		keyConversationState: store.StateQuestionsAsked,
		keyQuestionRound:     round,
	})
}
