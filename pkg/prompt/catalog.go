// Package prompt holds the generator catalog and turns workflow state into
// the system prompt and messages for an LLM call.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gruenerator-be/pkg/store"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const (
	DefaultGenerator = "universal"
	DefaultLocale    = "de"
)

type StaticQuestion struct {
	ID               string   `yaml:"id"`
	Text             string   `yaml:"text"`
	Type             string   `yaml:"type"`
	Options          []string `yaml:"options"`
	Emojis           []string `yaml:"emojis"`
	AllowCustom      bool     `yaml:"allow_custom"`
	AllowMultiSelect bool     `yaml:"allow_multi_select"`
	Placeholder      string   `yaml:"placeholder"`
}

type Generator struct {
	Title           string           `yaml:"title"`
	RoleExtension   string           `yaml:"role_extension"`
	Instructions    string           `yaml:"instructions"`
	StaticQuestions []StaticQuestion `yaml:"static_questions"`
}

type Catalog struct {
	BaseRole    string               `yaml:"base_role"`
	Appendix    string               `yaml:"appendix"`
	SkipOptions map[string]string    `yaml:"skip_options"`
	Generators  map[string]Generator `yaml:"generators"`
}

// LoadCatalog reads a catalog file. An empty path loads the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	if strings.TrimSpace(c.BaseRole) == "" {
		return nil, fmt.Errorf("prompt catalog: base_role is empty")
	}
	if _, ok := c.Generators[DefaultGenerator]; !ok {
		return nil, fmt.Errorf("prompt catalog: generator %q is required", DefaultGenerator)
	}
	for key, g := range c.Generators {
		for _, q := range g.StaticQuestions {
			if q.ID == "" || q.Text == "" {
				return nil, fmt.Errorf("prompt catalog: generator %s has a static question without id or text", key)
			}
		}
	}
	return &c, nil
}

// MustDefaultCatalog returns the built-in catalog and panics if it is invalid.
func MustDefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Generator returns the entry for kind, falling back to universal.
func (c *Catalog) Generator(kind string) Generator {
	if g, ok := c.Generators[kind]; ok {
		return g
	}
	return c.Generators[DefaultGenerator]
}

func (c *Catalog) Has(kind string) bool {
	_, ok := c.Generators[kind]
	return ok
}

// SystemRole is base role + type extension + appendix.
func (c *Catalog) SystemRole(kind string) string {
	parts := []string{strings.TrimSpace(c.BaseRole)}
	if ext := strings.TrimSpace(c.Generator(kind).RoleExtension); ext != "" {
		parts = append(parts, ext)
	}
	if app := strings.TrimSpace(c.Appendix); app != "" {
		parts = append(parts, app)
	}
	return strings.Join(parts, "\n\n")
}

// SkipOption is the localized answer meaning "skip this question".
func (c *Catalog) SkipOption(locale string) string {
	if v, ok := c.SkipOptions[locale]; ok {
		return v
	}
	if v, ok := c.SkipOptions[DefaultLocale]; ok {
		return v
	}
	return "Überspringen"
}

// StaticQuestions returns the fixed questions of kind as store questions.
// Only explicitly listed generators have static questions.
func (c *Catalog) StaticQuestions(kind string) []store.Question {
	g, ok := c.Generators[kind]
	if !ok {
		return nil
	}
	out := make([]store.Question, 0, len(g.StaticQuestions))
	for _, q := range g.StaticQuestions {
		out = append(out, store.Question{
			ID:               q.ID,
			Text:             q.Text,
			Type:             q.Type,
			Options:          append([]string{}, q.Options...),
			OptionEmojis:     append([]string{}, q.Emojis...),
			AllowCustom:      q.AllowCustom,
			AllowMultiSelect: q.AllowMultiSelect,
			Placeholder:      q.Placeholder,
			Source:           store.SourceStatic,
		})
	}
	return out
}
