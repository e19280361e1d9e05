package prompt

import (
	"fmt"
	"strings"

	"gruenerator-be/pkg/llm"
)

const maxSourceChars = 2500

type Source struct {
	Title   string
	URL     string
	Content string
}

// Context is everything final generation knows about a request.
type Context struct {
	Kind          string
	Locale        string
	SystemRole    string
	Thema         string
	Details       string
	AnswerSummary string
	Instructions  string
	Sources       []Source
	Knowledge     []Source
	History       []llm.Message
	Tools         []llm.Tool
}

type Assembled struct {
	System   string
	Messages []llm.Message
	Tools    []llm.Tool
}

// Assembler is the prompt assembly port.
type Assembler interface {
	Assemble(pc Context) (*Assembled, error)
}

type CatalogAssembler struct {
	catalog *Catalog
}

var _ Assembler = (*CatalogAssembler)(nil)

func NewCatalogAssembler(catalog *Catalog) *CatalogAssembler {
	return &CatalogAssembler{catalog: catalog}
}

func (a *CatalogAssembler) Assemble(pc Context) (*Assembled, error) {
	if strings.TrimSpace(pc.Thema) == "" && strings.TrimSpace(pc.Details) == "" {
		return nil, fmt.Errorf("prompt: thema and details are both empty")
	}

	system := pc.SystemRole
	if system == "" {
		system = a.catalog.SystemRole(pc.Kind)
	}

	var b strings.Builder
	gen := a.catalog.Generator(pc.Kind)
	fmt.Fprintf(&b, "Aufgabe: %s\n", gen.Title)
	if pc.Thema != "" {
		fmt.Fprintf(&b, "\nThema: %s\n", pc.Thema)
	}
	if pc.Details != "" {
		fmt.Fprintf(&b, "\nDetails:\n%s\n", pc.Details)
	}
	if pc.AnswerSummary != "" {
		fmt.Fprintf(&b, "\nZusätzliche Angaben aus der Rückfrage:\n%s\n", pc.AnswerSummary)
	}
	writeSources(&b, "Recherche-Ergebnisse", pc.Sources)
	writeSources(&b, "Hintergrundwissen", pc.Knowledge)

	instructions := strings.TrimSpace(gen.Instructions)
	if pc.Instructions != "" {
		instructions = strings.TrimSpace(instructions + "\n" + pc.Instructions)
	}
	if instructions != "" {
		fmt.Fprintf(&b, "\nAnweisungen:\n%s\n", instructions)
	}

	messages := make([]llm.Message, 0, len(pc.History)+1)
	messages = append(messages, pc.History...)
	messages = append(messages, llm.Message{Role: "user", Content: strings.TrimSpace(b.String())})

	return &Assembled{System: system, Messages: messages, Tools: pc.Tools}, nil
}

// Chat returns the assembled prompt as a provider history.
func (a *Assembled) Chat() []llm.Message {
	out := make([]llm.Message, 0, len(a.Messages)+1)
	out = append(out, llm.Message{Role: "system", Content: a.System})
	return append(out, a.Messages...)
}

func writeSources(b *strings.Builder, heading string, sources []Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for i, s := range sources {
		content := s.Content
		if r := []rune(content); len(r) > maxSourceChars {
			content = string(r[:maxSourceChars]) + "…"
		}
		fmt.Fprintf(b, "[%d] %s", i+1, s.Title)
		if s.URL != "" {
			fmt.Fprintf(b, " (%s)", s.URL)
		}
		fmt.Fprintf(b, "\n%s\n", content)
	}
}
