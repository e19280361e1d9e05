package factory

import (
	"testing"

	"gruenerator-be/pkg/llm/ollama"
	"gruenerator-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider("ollama", "llama3", "", "", 0)
	require.NoError(t, err)
	o, ok := p.(*ollama.OllamaProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", o.BaseURL)

	p, err = NewLLMProvider("mistral", "mistral-small", "https://api.mistral.ai/v1", "key", 0)
	require.NoError(t, err)
	assert.IsType(t, &openai.OpenAIProvider{}, p)

	_, err = NewLLMProvider("openai", "gpt", "", "", 0)
	assert.Error(t, err)

	_, err = NewLLMProvider("gemini", "x", "", "", 0)
	assert.Error(t, err)
}
