// Package pipeline runs single-shot generations for classified chat intents
// as a two-node workflow (prepare, generate).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/pkg/intent"
	"gruenerator-be/pkg/llm"
	"gruenerator-be/pkg/prompt"
	"gruenerator-be/pkg/workflow"
)

var ErrGenerationFailed = errors.New("generation failed")

const (
	nodePrepare  = "prepare"
	nodeGenerate = "generate"

	keyRequest  = "request"
	keyPrompt   = "prompt"
	keyContent  = "content"
	keyError    = "error"
	keyMetadata = "metadata"
)

var schema = workflow.Schema{keyMetadata: workflow.ShallowMerge}

// Request is one intent to generate for.
type Request struct {
	UserID  string
	Agent   intent.Agent
	Route   string
	Message string
	Params  map[string]interface{}
	History []llm.Message
}

type Result struct {
	Agent    intent.Agent           `json:"agent"`
	Route    string                 `json:"route"`
	Content  string                 `json:"content"`
	Params   map[string]interface{} `json:"params"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Config tunes the model call for one route.
type Config struct {
	Temperature float64
	MaxTokens   int
}

// GenerationPipeline is a compiled prepare -> generate graph for one route.
type GenerationPipeline struct {
	route     string
	provider  llm.Provider
	assembler prompt.Assembler
	cfg       Config
	graph     *workflow.CompiledGraph
	logger    logger.ILogger
}

func NewGenerationPipeline(
	route string,
	provider llm.Provider,
	assembler prompt.Assembler,
	cfg Config,
	log logger.ILogger,
	opts ...workflow.Option,
) (*GenerationPipeline, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	p := &GenerationPipeline{
		route:     route,
		provider:  provider,
		assembler: assembler,
		cfg:       cfg,
		logger:    log,
	}

	g := workflow.NewGraph(schema).
		AddNode(nodePrepare, p.prepare).
		AddNode(nodeGenerate, p.generate).
		AddConditionalEdge(nodePrepare, func(s workflow.State) string {
			if _, failed := s[keyError]; failed {
				return workflow.End
			}
			return nodeGenerate
		}, nodeGenerate).
		AddEdge(nodeGenerate, workflow.End).
		SetEntryPoint(nodePrepare)

	graph, err := g.Compile(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %s pipeline: %w", route, err)
	}
	p.graph = graph
	return p, nil
}

func (p *GenerationPipeline) Route() string { return p.route }

// Run executes the pipeline. Node failures come back as ErrGenerationFailed.
func (p *GenerationPipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res, err := p.graph.Invoke(ctx, workflow.State{keyRequest: req}, string(req.Agent)+":"+req.UserID)
	if err != nil {
		return nil, err
	}
	if msg, failed := res.State[keyError].(string); failed {
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, msg)
	}

	return &Result{
		Agent:    req.Agent,
		Route:    p.route,
		Content:  workflow.GetOr(res.State, keyContent, ""),
		Params:   req.Params,
		Metadata: workflow.GetOr(res.State, keyMetadata, map[string]interface{}{}),
	}, nil
}

func (p *GenerationPipeline) prepare(ctx context.Context, s workflow.State) workflow.Outcome {
	req, _ := workflow.Get[Request](s, keyRequest)

	thema, _ := req.Params["thema"].(string)
	assembled, err := p.assembler.Assemble(prompt.Context{
		Kind:         kindFor(req),
		Thema:        thema,
		Details:      req.Message,
		Instructions: instructionsFor(req.Params),
		History:      req.History,
	})
	if err != nil {
		return workflow.Continue(workflow.State{keyError: err.Error()})
	}
	return workflow.Continue(workflow.State{
		keyPrompt:   assembled,
		keyMetadata: map[string]interface{}{"kind": kindFor(req)},
	})
}

func (p *GenerationPipeline) generate(ctx context.Context, s workflow.State) workflow.Outcome {
	req, _ := workflow.Get[Request](s, keyRequest)
	assembled, ok := workflow.Get[*prompt.Assembled](s, keyPrompt)
	if !ok {
		return workflow.Continue(workflow.State{keyError: "prompt missing"})
	}

	opts := []llm.Option{llm.WithTemperature(p.cfg.Temperature), llm.WithRequestType(p.route)}
	if p.cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(p.cfg.MaxTokens))
	}

	resp, err := p.provider.Chat(ctx, assembled.Chat(), opts...)
	if err != nil {
		p.logger.Error("PIPELINE", "Generation failed", map[string]interface{}{"route": p.route, "agent": req.Agent, "error": err.Error()})
		return workflow.Continue(workflow.State{keyError: err.Error()})
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return workflow.Continue(workflow.State{keyError: llm.ErrEmptyResponse.Error()})
	}
	return workflow.Continue(workflow.State{keyContent: content})
}

// kindFor picks the prompt catalog entry. Parliamentary routes carry the
// concrete type in params, everything else is keyed by agent.
func kindFor(req Request) string {
	if rt, ok := req.Params["requestType"].(string); ok && rt != "" {
		return rt
	}
	if req.Agent != "" {
		return string(req.Agent)
	}
	return req.Route
}

func instructionsFor(params map[string]interface{}) string {
	var parts []string
	switch params["length"] {
	case "short":
		parts = append(parts, "Fasse dich kurz.")
	case "long":
		parts = append(parts, "Schreibe ausführlich.")
	}
	if platforms, ok := params["platforms"].([]string); ok && len(platforms) > 0 {
		parts = append(parts, "Plattformen: "+strings.Join(platforms, ", ")+".")
	}
	return strings.Join(parts, " ")
}
