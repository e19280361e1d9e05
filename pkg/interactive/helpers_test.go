package interactive

import (
	"regexp"
	"testing"

	"gruenerator-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterleaveResults(t *testing.T) {
	facts := []store.SearchResult{
		{URL: "https://a.de/1", Purpose: "facts"},
		{URL: "https://a.de/2", Purpose: "facts"},
		{URL: "https://a.de/3", Purpose: "facts"},
	}
	news := []store.SearchResult{
		{URL: "https://www.a.de/1/", Purpose: "news"},
		{URL: "https://b.de/1", Purpose: "news"},
	}
	legal := []store.SearchResult{
		{URL: "https://c.de/1", Purpose: "legal"},
	}

	out := InterleaveResults([][]store.SearchResult{facts, news, legal}, 0)

	var urls []string
	for _, r := range out {
		urls = append(urls, r.URL)
	}
	assert.Equal(t, []string{"https://a.de/1", "https://c.de/1", "https://a.de/2", "https://b.de/1", "https://a.de/3"}, urls)

	seen := map[string]bool{}
	for _, r := range out {
		key := normalizeURL(r.URL)
		assert.False(t, seen[key], "duplicate %s", r.URL)
		seen[key] = true
	}

	capped := InterleaveResults([][]store.SearchResult{facts, news, legal}, 2)
	require.Len(t, capped, 2)
	assert.Equal(t, "facts", capped[0].Purpose)
	assert.Equal(t, "legal", capped[1].Purpose)
}

func TestNormalizeQuestions(t *testing.T) {
	in := []store.Question{
		{ID: "a", Text: "1", Options: []string{"x", "y"}, OptionEmojis: []string{"1️⃣", "2️⃣", "3️⃣"}},
		{ID: "a", Text: "2", Options: []string{"x", "y", "z"}, OptionEmojis: []string{"", "✅"}},
		{Text: "3"},
	}
	out := NormalizeQuestions(in)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "q2", "q3"}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, []string{"1️⃣", "2️⃣"}, out[0].OptionEmojis)
	assert.Equal(t, []string{PlaceholderEmoji, "✅", PlaceholderEmoji}, out[1].OptionEmojis)
	assert.Empty(t, out[2].Options)
	assert.Len(t, out[2].OptionEmojis, 0)
	assert.Equal(t, "general", out[2].Type)
	assert.Len(t, in[0].OptionEmojis, 3, "input untouched")
}

func TestBuildTranscript(t *testing.T) {
	questions := []store.Question{
		{ID: "q1", Text: "Zielgruppe?"},
		{ID: "q2", Text: "Ton?"},
		{ID: "q3", Text: "Plattformen?"},
	}
	answers := map[string]interface{}{
		"q1":      "Familien",
		"q2":      "Überspringen",
		"q3":      []interface{}{"Instagram", "Überspringen", "Mastodon"},
		"gremium": "Stadtrat",
	}

	got := BuildTranscript(questions, answers, "Überspringen")
	assert.Equal(t, "Frage: Zielgruppe?\nAntwort: Familien\n\n"+
		"Frage: Plattformen?\nAntwort: Instagram, Mastodon\n\n"+
		"Frage: gremium\nAntwort: Stadtrat", got)

	assert.Empty(t, BuildTranscript(questions, map[string]interface{}{"q1": " ", "q2": "überspringen"}, "Überspringen"))
}

func TestFlattenAnswersLaterRoundWins(t *testing.T) {
	flat := flattenAnswers(map[string]interface{}{
		"round2":  map[string]interface{}{"q1": "neu"},
		"round1":  map[string]interface{}{"q1": "alt", "q2": "bleibt"},
		"round10": map[string]interface{}{"q3": "spät"},
	})
	assert.Equal(t, map[string]interface{}{"q1": "neu", "q2": "bleibt", "q3": "spät"}, flat)
}

func TestExtractClarification(t *testing.T) {
	c := ExtractClarification(
		[]store.Question{{ID: "q1", Type: "audience"}, {ID: "q2", Type: "tone"}, {ID: "q3", Type: "facts"}},
		map[string]string{"q1": "Familien", "q2": "sachlich", "q3": "42 km", "gremium": "Stadtrat"},
	)
	assert.Equal(t, "Familien", c.Audience)
	assert.Equal(t, "sachlich", c.Tone)
	assert.Equal(t, []string{"Stadtrat", "42 km"}, c.Facts)
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]+_[0-9a-f]{8}$`), id)
	assert.NotEqual(t, id, NewSessionID())
}
