package pipeline

import (
	"regexp"
	"strings"

	"gruenerator-be/pkg/intent"
)

var (
	topicRe = regexp.MustCompile(`(?i)(?:^|\s)(?:zum thema|zur frage|zum|zur|über|ueber|zu|für)\s+(.+)$`)

	// A bare "x" only counts next to another platform, after auf/für/bei
	// or as "X-Post".
	platformRe = regexp.MustCompile(`(?i)\b(instagram|facebook|mastodon|linkedin|tiktok|twitter)\b(?:\s*(?:,|und|oder|&)\s*(x)\b)?` +
		`|\b(?:auf|für|bei)\s+(x)\b|\b(x)[- ](?:post|thread|tweet)`)
)

// DeriveParams builds the parameters of one intent from the original message.
// It returns a fresh map on every call so concurrently dispatched intents
// never share extraction state.
func DeriveParams(message string, in intent.Intent) map[string]interface{} {
	params := make(map[string]interface{}, len(in.Params)+3)
	for k, v := range in.Params {
		params[k] = v
	}

	message = strings.TrimSpace(message)
	params["originalMessage"] = message
	if _, ok := params["thema"]; !ok {
		params["thema"] = extractTopic(message)
	}

	if in.Route == intent.RouteSocial && in.Agent == intent.AgentSocialMedia {
		if platforms := extractPlatforms(message); len(platforms) > 0 {
			params["platforms"] = platforms
		}
	}

	lower := strings.ToLower(message)
	if strings.Contains(lower, "kurz") || strings.Contains(lower, "knapp") {
		params["length"] = "short"
	} else if strings.Contains(lower, "ausführlich") {
		params["length"] = "long"
	}
	return params
}

func extractTopic(message string) string {
	if m := topicRe.FindStringSubmatch(message); m != nil {
		return strings.TrimRight(strings.TrimSpace(m[1]), ".!?")
	}
	return message
}

func extractPlatforms(message string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range platformRe.FindAllStringSubmatch(message, -1) {
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			p := strings.ToLower(g)
			if p == "twitter" {
				p = "x"
			}
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
