package factory

import (
	"fmt"
	"time"

	"gruenerator-be/pkg/llm"
	"gruenerator-be/pkg/llm/ollama"
	"gruenerator-be/pkg/llm/openai"
)

// NewLLMProvider builds the provider named by providerType.
// "openai" covers every OpenAI-compatible endpoint (Mistral, LiteLLM).
func NewLLMProvider(providerType, modelName, baseURL, apiKey string, timeout time.Duration) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName, timeout), nil
	case "openai", "mistral", "litellm":
		if apiKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", providerType)
		}
		return openai.NewOpenAIProvider(apiKey, baseURL, modelName, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
