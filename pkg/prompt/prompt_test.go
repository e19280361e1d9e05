package prompt

import (
	"strings"
	"testing"

	"gruenerator-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	t.Run("static questions have matching emojis", func(t *testing.T) {
		for kind := range c.Generators {
			for _, q := range c.StaticQuestions(kind) {
				assert.Len(t, q.OptionEmojis, len(q.Options), "%s/%s", kind, q.ID)
				assert.Equal(t, "static", q.Source)
			}
		}
	})

	t.Run("skip option per locale", func(t *testing.T) {
		assert.Equal(t, "Überspringen", c.SkipOption("de"))
		assert.Equal(t, "Skip", c.SkipOption("en"))
		assert.Equal(t, "Überspringen", c.SkipOption("fr"))
	})

	t.Run("system role composition", func(t *testing.T) {
		role := c.SystemRole("antrag")
		assert.True(t, strings.HasPrefix(role, "Du bist ein erfahrener Texter"))
		assert.Contains(t, role, "Beschlussvorschlag")
		assert.Contains(t, role, "ausschließlich mit dem fertigen Text")
	})

	t.Run("unknown kind falls back to universal", func(t *testing.T) {
		assert.Equal(t, c.Generators["universal"].Title, c.Generator("gibtsnicht").Title)
		assert.Empty(t, c.StaticQuestions("gibtsnicht"))
	})
}

func TestParseCatalogValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty base role", "generators:\n  universal:\n    title: x\n"},
		{"missing universal", "base_role: x\ngenerators:\n  antrag:\n    title: y\n"},
		{"question without id", "base_role: x\ngenerators:\n  universal:\n    static_questions:\n      - text: hi\n"},
		{"invalid yaml", "base_role: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCatalogAssembler(t *testing.T) {
	a := NewCatalogAssembler(MustDefaultCatalog())

	out, err := a.Assemble(Context{
		Kind:          "pressemitteilung",
		Thema:         "Radwege",
		Details:       "Neue Radwege an der Promenade",
		AnswerSummary: "Zitiert wird die Fraktionsvorsitzende.",
		Sources:       []Source{{Title: "Stadtportal", URL: "https://muenster.de", Content: "Plan"}},
		Tools:         []llm.Tool{{Name: "x"}},
	})
	require.NoError(t, err)

	assert.Contains(t, out.System, "Pressemitteilungen")
	require.Len(t, out.Messages, 1)
	msg := out.Messages[0].Content
	assert.Contains(t, msg, "Thema: Radwege")
	assert.Contains(t, msg, "Zitiert wird die Fraktionsvorsitzende.")
	assert.Contains(t, msg, "[1] Stadtportal (https://muenster.de)")
	assert.Len(t, out.Tools, 1)

	chat := out.Chat()
	assert.Equal(t, "system", chat[0].Role)
	assert.Equal(t, "user", chat[1].Role)

	_, err = a.Assemble(Context{Kind: "antrag"})
	assert.Error(t, err)
}
