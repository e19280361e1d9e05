package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without content or tool calls.
var ErrEmptyResponse = errors.New("llm: empty response")

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Tool describes a function the model may call instead of answering in text.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema
}

// ToolCall is a structured result distinct from plain text content.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON
}

// Response is the result of one AI call.
type Response struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall returns the first tool call with the given name.
func (r *Response) ToolCall(name string) (ToolCall, bool) {
	if r == nil {
		return ToolCall{}, false
	}
	for _, tc := range r.ToolCalls {
		if tc.Name == name {
			return tc, true
		}
	}
	return ToolCall{}, false
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	RequestType string // e.g. "intent_classification", used for logs and metrics
	Tools       []Tool
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithRequestType(requestType string) Option {
	return func(o *Options) {
		o.RequestType = requestType
	}
}

func WithTools(tools ...Tool) Option {
	return func(o *Options) {
		o.Tools = append(o.Tools, tools...)
	}
}

// ApplyOptions resolves options on top of the given defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// Provider defines the contract for any LLM backend
type Provider interface {
	// Chat sends a chat history (system prompt included as a "system" message)
	// to the model and returns the response.
	Chat(ctx context.Context, history []Message, options ...Option) (*Response, error)
}

// System builds the message list for a single system prompt and user prompt.
func System(systemPrompt, userPrompt string) []Message {
	var messages []Message
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	return append(messages, Message{Role: "user", Content: userPrompt})
}

// Generate sends a single prompt to the model and returns its text content.
func Generate(ctx context.Context, p Provider, prompt string, options ...Option) (string, error) {
	resp, err := p.Chat(ctx, []Message{{Role: "user", Content: prompt}}, options...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
