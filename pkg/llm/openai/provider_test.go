package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gruenerator-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProviderChat(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "mistral-small",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "Entwurf",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "ask", "arguments": "{\"a\":1}"}}]
				}
			}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("secret", srv.URL, "mistral-small", 0)
	resp, err := p.Chat(context.Background(), llm.System("Du bist hilfreich.", "Hallo"),
		llm.WithTools(llm.Tool{Name: "ask", Parameters: map[string]interface{}{"type": "object"}}))

	require.NoError(t, err)
	assert.Equal(t, "Entwurf", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "ask", resp.ToolCalls[0].Name)
	assert.Equal(t, `{"a":1}`, resp.ToolCalls[0].Arguments)

	assert.Equal(t, "mistral-small", body["model"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
}
