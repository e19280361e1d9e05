package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gruenerator-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	content string
	err     error
	prompts []string
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	for _, m := range history {
		s.prompts = append(s.prompts, m.Content)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.content}, nil
}

func TestClassifyAIMultiIntent(t *testing.T) {
	stub := &stubProvider{content: "Gerne! ```json\n[{\"agent\":\"zitat\",\"confidence\":0.9},{\"agent\":\"pressemitteilung\",\"confidence\":0.85}]\n```"}

	res := ClassifyIntent(context.Background(), "erstelle ein zitat und eine pressemitteilung", ClassificationContext{}, stub)

	assert.True(t, res.IsMultiIntent)
	require.Len(t, res.Intents, 2)
	assert.Equal(t, MethodAI, res.Method)
	assert.Equal(t, AgentZitat, res.Intents[0].Agent)
	assert.Equal(t, RouteSharepic, res.Intents[0].Route)
	assert.Equal(t, AgentPressemitteilung, res.Intents[1].Agent)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestClassifyKeywordWithoutProvider(t *testing.T) {
	res := ClassifyIntent(context.Background(), "kleine anfrage zum thema Radwege", ClassificationContext{}, nil)

	assert.Equal(t, MethodKeyword, res.Method)
	assert.False(t, res.IsMultiIntent)
	require.Len(t, res.Intents, 1)
	assert.Equal(t, AgentKleineAnfrage, res.Intents[0].Agent)
	assert.Equal(t, "antrag_simple", res.Intents[0].Route)
	assert.Equal(t, "kleine_anfrage", res.Intents[0].Params["requestType"])
	assert.Equal(t, KeywordConfidence, res.Intents[0].Confidence)
}

func TestClassifyFallback(t *testing.T) {
	res := ClassifyIntent(context.Background(), "Hallo, wie geht's?", ClassificationContext{}, nil)

	assert.Equal(t, MethodFallback, res.Method)
	require.Len(t, res.Intents, 1)
	assert.Equal(t, AgentUniversal, res.Intents[0].Agent)
	assert.Equal(t, FallbackConfidence, res.Confidence)
}

func TestClassifyAIFallsThrough(t *testing.T) {
	tests := []struct {
		name string
		stub *stubProvider
	}{
		{"provider error", &stubProvider{err: errors.New("timeout")}},
		{"no json", &stubProvider{content: "Ich bin mir nicht sicher."}},
		{"only unknown agents", &stubProvider{content: `[{"agent":"gedicht","confidence":0.9}]`}},
		{"empty array", &stubProvider{content: `[]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ClassifyIntent(context.Background(), "schreib einen antrag für mehr bäume", ClassificationContext{}, tt.stub)
			assert.Equal(t, MethodKeyword, res.Method)
			assert.Equal(t, AgentAntrag, res.Intents[0].Agent)
		})
	}
}

func TestClassifyAIDropsUnknownAgentsAndClamps(t *testing.T) {
	stub := &stubProvider{content: `[{"agent":"gedicht","confidence":0.99},{"agent":"rede","confidence":1.7,"params":{"dauer":"5"}}]`}
	res := ClassifyIntent(context.Background(), "x", ClassificationContext{}, stub)

	require.Len(t, res.Intents, 1)
	assert.False(t, res.IsMultiIntent)
	assert.Equal(t, AgentRede, res.Intents[0].Agent)
	assert.Equal(t, 1.0, res.Intents[0].Confidence)
	assert.Equal(t, "5", res.Intents[0].Params["dauer"])
}

func TestClassifyContextTier(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		previous string
		want     Agent
		method   Method
	}{
		{"sibling by secondary keyword", "mach daraus einen knackigen spruch", "info", AgentZitat, MethodContext},
		{"continue previous agent", "mache es bitte kürzer", "headline", AgentHeadline, MethodContext},
		{"no cue word", "bitte kürzer", "headline", AgentUniversal, MethodFallback},
		{"unknown previous agent", "mach daraus was", "gedicht", AgentUniversal, MethodFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ClassifyIntent(context.Background(), tt.message, ClassificationContext{PreviousAgent: tt.previous}, nil)
			assert.Equal(t, tt.method, res.Method)
			assert.Equal(t, tt.want, res.Intents[0].Agent)
		})
	}
}

func TestKeywordOrderIsTieBreak(t *testing.T) {
	// "kleine anfrage" is listed before "antrag", so a message naming both
	// resolves to the earlier entry.
	res := ClassifyIntent(context.Background(), "Antrag oder kleine Anfrage zu Radwegen", ClassificationContext{}, nil)
	assert.Equal(t, AgentKleineAnfrage, res.Intents[0].Agent)
}

func TestClassifierPromptTruncatesHistory(t *testing.T) {
	var history []llm.Message
	for i := 0; i < 8; i++ {
		history = append(history, llm.Message{Role: "user", Content: strings.Repeat(string(rune('a'+i)), 150)})
	}
	prompt := buildClassifierPrompt("hi", ClassificationContext{History: history, HasImage: true})

	assert.NotContains(t, prompt, strings.Repeat("a", 100))
	assert.Contains(t, prompt, "user: "+strings.Repeat("h", 100)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("h", 101))
	assert.Contains(t, prompt, "Bild angehängt: true")
}

func TestRegistryParamsAreCopied(t *testing.T) {
	spec, ok := Lookup("antrag")
	require.True(t, ok)
	p := spec.DefaultParams()
	p["requestType"] = "changed"

	again, _ := Lookup("antrag")
	assert.Equal(t, "antrag", again.Params["requestType"])
}
