// Package intent maps a free-text chat message to one or more registered
// agents. Tiers are tried in order: AI, keyword, context, fallback.
package intent

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gruenerator-be/internal/constant"
	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/pkg/llm"
)

type Method string

const (
	MethodAI       Method = "ai"
	MethodKeyword  Method = "keyword"
	MethodContext  Method = "context"
	MethodFallback Method = "fallback"
)

const (
	KeywordConfidence  = 0.8
	ContextConfidence  = 0.6
	FallbackConfidence = 0.3

	historyTurns     = 5
	historyTurnChars = 100
)

// cueWords mark a message as a transformation of the previous result.
var cueWords = []string{"daraus", "davon", "mache", "mach ", "erstelle", "nochmal", "jetzt als", "auch als"}

type Intent struct {
	Agent      Agent                  `json:"agent"`
	Route      string                 `json:"route"`
	Params     map[string]interface{} `json:"params"`
	Confidence float64                `json:"confidence"`
}

type ClassificationResult struct {
	IsMultiIntent bool     `json:"isMultiIntent"`
	Intents       []Intent `json:"intents"`
	Method        Method   `json:"method"`
	Confidence    float64  `json:"confidence"`
}

// ClassificationContext is what the classifier knows about the conversation.
type ClassificationContext struct {
	PreviousAgent string
	History       []llm.Message
	HasImage      bool
}

// ClassificationError describes a failed AI tier. It is logged, never returned.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai classification: %s: %v", e.Reason, e.Err)
	}
	return "ai classification: " + e.Reason
}

func (e *ClassificationError) Unwrap() error { return e.Err }

type Classifier struct {
	provider llm.Provider
	model    string
	logger   logger.ILogger
}

// NewClassifier builds a classifier. provider may be nil, which disables the AI tier.
func NewClassifier(provider llm.Provider, model string, log logger.ILogger) *Classifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Classifier{provider: provider, model: model, logger: log}
}

// ClassifyIntent is the functional form of Classifier.Classify.
func ClassifyIntent(ctx context.Context, message string, cctx ClassificationContext, provider llm.Provider) *ClassificationResult {
	return NewClassifier(provider, "", nil).Classify(ctx, message, cctx)
}

// Classify always returns a result with at least one intent.
func (c *Classifier) Classify(ctx context.Context, message string, cctx ClassificationContext) *ClassificationResult {
	if c.provider != nil {
		intents, err := c.classifyWithAI(ctx, message, cctx)
		if err == nil {
			return newResult(intents, MethodAI)
		}
		c.logger.Warn("INTENT", "AI tier produced nothing, falling through", map[string]interface{}{"error": err.Error()})
	}

	normalized := normalize(message)

	if in, ok := classifyByKeyword(normalized); ok {
		return newResult([]Intent{in}, MethodKeyword)
	}
	if in, ok := classifyByContext(normalized, cctx.PreviousAgent); ok {
		return newResult([]Intent{in}, MethodContext)
	}

	spec := byName[AgentUniversal]
	return newResult([]Intent{intentFor(spec, FallbackConfidence)}, MethodFallback)
}

type aiIntent struct {
	Agent      string                 `json:"agent"`
	Confidence float64                `json:"confidence"`
	Params     map[string]interface{} `json:"params"`
}

func (c *Classifier) classifyWithAI(ctx context.Context, message string, cctx ClassificationContext) ([]Intent, error) {
	opts := []llm.Option{llm.WithTemperature(0), llm.WithMaxTokens(300), llm.WithRequestType("intent_classification")}
	if c.model != "" {
		opts = append(opts, llm.WithModel(c.model))
	}

	resp, err := c.provider.Chat(ctx, llm.System(constant.IntentClassifierPrompt, buildClassifierPrompt(message, cctx)), opts...)
	if err != nil {
		return nil, &ClassificationError{Reason: "provider call failed", Err: err}
	}

	var raw []aiIntent
	if err := llm.DecodeJSONArray(resp.Content, &raw); err != nil {
		return nil, &ClassificationError{Reason: "unparseable response", Err: err}
	}

	var intents []Intent
	seen := make(map[Agent]bool)
	for _, r := range raw {
		spec, ok := Lookup(strings.TrimSpace(r.Agent))
		if !ok {
			c.logger.Debug("INTENT", "Dropping unknown agent from AI response", map[string]interface{}{"agent": r.Agent})
			continue
		}
		if seen[spec.Agent] {
			continue
		}
		seen[spec.Agent] = true

		in := intentFor(spec, clamp(r.Confidence))
		for k, v := range r.Params {
			in.Params[k] = v
		}
		intents = append(intents, in)
	}
	if len(intents) == 0 {
		return nil, &ClassificationError{Reason: "no known agents in response"}
	}
	return intents, nil
}

func classifyByKeyword(normalized string) (Intent, bool) {
	for _, spec := range registry {
		for _, kw := range spec.Keywords {
			if strings.Contains(normalized, kw) {
				return intentFor(spec, KeywordConfidence), true
			}
		}
	}
	return Intent{}, false
}

// classifyByContext continues in the previous agent's family: a secondary
// keyword picks a sibling agent, otherwise the previous agent is reused.
func classifyByContext(normalized, previous string) (Intent, bool) {
	prev, ok := Lookup(previous)
	if !ok || !containsAny(normalized, cueWords) {
		return Intent{}, false
	}
	for _, spec := range registry {
		if spec.Family != prev.Family || spec.Agent == prev.Agent {
			continue
		}
		if containsAny(normalized, spec.Secondary) {
			return intentFor(spec, ContextConfidence), true
		}
	}
	return intentFor(prev, ContextConfidence), true
}

func buildClassifierPrompt(message string, cctx ClassificationContext) string {
	var b strings.Builder

	b.WriteString("Verfügbare Agenten:\n")
	for _, spec := range registry {
		fmt.Fprintf(&b, "- %s: %s\n", spec.Agent, spec.Description)
	}

	history := cctx.History
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\nBisheriger Verlauf:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, truncateRunes(m.Content, historyTurnChars))
		}
	}
	if cctx.PreviousAgent != "" {
		fmt.Fprintf(&b, "\nZuletzt genutzter Agent: %s\n", cctx.PreviousAgent)
	}
	fmt.Fprintf(&b, "\nBild angehängt: %t\n", cctx.HasImage)
	fmt.Fprintf(&b, "\nNachricht: %q\n", message)
	return b.String()
}

func newResult(intents []Intent, method Method) *ClassificationResult {
	res := &ClassificationResult{
		IsMultiIntent: len(intents) > 1,
		Intents:       intents,
		Method:        method,
	}
	for _, in := range intents {
		res.Confidence = math.Max(res.Confidence, in.Confidence)
	}
	return res
}

func intentFor(spec AgentSpec, confidence float64) Intent {
	return Intent{
		Agent:      spec.Agent,
		Route:      spec.Route,
		Params:     spec.DefaultParams(),
		Confidence: confidence,
	}
}

func normalize(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
