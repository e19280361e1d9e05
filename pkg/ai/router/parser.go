package router

import (
	"strings"
)

// Prefix constants - ORDER MATTERS for parsing (check longer prefix first)
const (
	PrefixInteractive = "/interactive"
	PrefixAgent       = "/agent:"
)

// Mode represents how a chat message is handled
type Mode string

const (
	ModeClassify    Mode = "CLASSIFY"    // Default: classifier decides
	ModeAgent       Mode = "AGENT"       // Agent forced by prefix, classifier skipped
	ModeInteractive Mode = "INTERACTIVE" // Hand over to the interactive question flow
)

// ParsedPrompt contains routing information extracted from a chat message
type ParsedPrompt struct {
	OriginalPrompt string
	CleanPrompt    string // Prompt without prefix
	Mode           Mode
	AgentKey       string // Set for ModeAgent and optionally ModeInteractive
}

// Parse extracts routing directives from a chat message.
// Supports:
//   - /interactive[:type] <prompt> → interactive generation, optional request type
//   - /agent:key <prompt> → skip classification, use agent key
//   - <prompt> → classify
func Parse(prompt string) *ParsedPrompt {
	trimmed := strings.TrimSpace(prompt)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, PrefixInteractive) {
		rest := trimmed[len(PrefixInteractive):]
		if strings.HasPrefix(rest, ":") {
			key, clean := extractKeyAndPrompt(rest[1:])
			return &ParsedPrompt{OriginalPrompt: prompt, CleanPrompt: clean, Mode: ModeInteractive, AgentKey: key}
		}
		if rest == "" || rest[0] == ' ' {
			return &ParsedPrompt{OriginalPrompt: prompt, CleanPrompt: strings.TrimSpace(rest), Mode: ModeInteractive}
		}
	}

	if strings.HasPrefix(lower, PrefixAgent) {
		key, clean := extractKeyAndPrompt(trimmed[len(PrefixAgent):])
		if key != "" {
			return &ParsedPrompt{OriginalPrompt: prompt, CleanPrompt: clean, Mode: ModeAgent, AgentKey: key}
		}
	}

	return &ParsedPrompt{
		OriginalPrompt: prompt,
		CleanPrompt:    trimmed,
		Mode:           ModeClassify,
	}
}

// extractKeyAndPrompt splits "key prompt" into (key, prompt)
func extractKeyAndPrompt(rest string) (string, string) {
	spaceIdx := strings.Index(rest, " ")
	if spaceIdx == -1 {
		return strings.ToLower(rest), ""
	}
	return strings.ToLower(rest[:spaceIdx]), strings.TrimSpace(rest[spaceIdx+1:])
}

// IsEmpty returns true if the clean prompt is empty
func (p *ParsedPrompt) IsEmpty() bool {
	return strings.TrimSpace(p.CleanPrompt) == ""
}
