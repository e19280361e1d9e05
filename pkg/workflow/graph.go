// Package workflow runs named node functions over a shared State along a
// directed graph, with a suspend point that persists a resumable checkpoint.
package workflow

import (
	"context"
	"errors"
	"fmt"
)

const (
	// End is the terminal pseudo-node. Selectors return it to finish a run.
	End = "__end__"

	// ResumeKey holds the resume payload injected by CompiledGraph.Resume.
	ResumeKey = "__resume__"
)

var (
	ErrNoEntryPoint       = errors.New("workflow: entry point not set")
	ErrUnknownNode        = errors.New("workflow: unknown node")
	ErrDuplicateNode      = errors.New("workflow: duplicate node")
	ErrMissingEdge        = errors.New("workflow: node has no outgoing edge")
	ErrInvalidTransition  = errors.New("workflow: selector returned an undeclared target")
	ErrStepLimit          = errors.New("workflow: step limit exceeded")
	ErrCheckpointNotFound = errors.New("workflow: checkpoint not found")
	ErrNoCheckpointStore  = errors.New("workflow: node suspended but no checkpoint store configured")
)

// NodeFunc is one step of the graph. It returns either Continue or Suspend.
type NodeFunc func(ctx context.Context, state State) Outcome

// Selector picks the next node for a conditional edge.
type Selector func(state State) string

type outcomeKind int

const (
	kindContinue outcomeKind = iota
	kindSuspend
)

// Outcome is the tagged result of a node execution.
type Outcome struct {
	kind    outcomeKind
	update  State
	payload interface{}
}

// Continue merges update into the state and proceeds along the node's edge.
func Continue(update State) Outcome {
	return Outcome{kind: kindContinue, update: update}
}

// Suspend merges update, persists a checkpoint at the node's successor and
// returns payload to the caller as the interrupt value.
func Suspend(payload interface{}, update State) Outcome {
	return Outcome{kind: kindSuspend, update: update, payload: payload}
}

// Suspended reports whether the node asked to pause the run.
func (o Outcome) Suspended() bool {
	return o.kind == kindSuspend
}

// Update returns the partial state carried by the outcome.
func (o Outcome) Update() State {
	return o.update
}

type edge struct {
	to       string
	selector Selector
	targets  map[string]bool
}

// Graph is the mutable builder. Call Compile to get something runnable.
type Graph struct {
	schema Schema
	nodes  map[string]NodeFunc
	edges  map[string]edge
	entry  string
	errs   []error
}

func NewGraph(schema Schema) *Graph {
	if schema == nil {
		schema = Schema{}
	}
	return &Graph{
		schema: schema,
		nodes:  make(map[string]NodeFunc),
		edges:  make(map[string]edge),
	}
}

func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	if _, exists := g.nodes[name]; exists || name == End {
		g.errs = append(g.errs, fmt.Errorf("%w: %s", ErrDuplicateNode, name))
		return g
	}
	g.nodes[name] = fn
	return g
}

// AddEdge declares an unconditional transition.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.setEdge(from, edge{to: to})
	return g
}

// AddConditionalEdge declares a transition chosen at run time. The selector
// must return one of targets (End is always allowed).
func (g *Graph) AddConditionalEdge(from string, selector Selector, targets ...string) *Graph {
	allowed := map[string]bool{End: true}
	for _, t := range targets {
		allowed[t] = true
	}
	g.setEdge(from, edge{selector: selector, targets: allowed})
	return g
}

func (g *Graph) SetEntryPoint(name string) *Graph {
	g.entry = name
	return g
}

func (g *Graph) setEdge(from string, e edge) {
	if _, exists := g.edges[from]; exists {
		g.errs = append(g.errs, fmt.Errorf("workflow: node %s already has an outgoing edge", from))
		return
	}
	g.edges[from] = e
}

// Compile validates the graph and returns a runnable CompiledGraph.
// store may be nil for graphs that never suspend.
func (g *Graph) Compile(store CheckpointStore, opts ...Option) (*CompiledGraph, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	cg := &CompiledGraph{
		schema:    g.schema,
		nodes:     make(map[string]NodeFunc, len(g.nodes)),
		edges:     make(map[string]edge, len(g.edges)),
		entry:     g.entry,
		store:     store,
		stepLimit: defaultStepLimit,
		tracer:    defaultTracer(),
	}
	for k, v := range g.nodes {
		cg.nodes[k] = v
	}
	for k, v := range g.edges {
		cg.edges[k] = v
	}
	for _, opt := range opts {
		opt(cg)
	}
	return cg, nil
}

func (g *Graph) validate() error {
	errs := append([]error(nil), g.errs...)

	if g.entry == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, ok := g.nodes[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("%w: entry %s", ErrUnknownNode, g.entry))
	}

	for from, e := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge source %s", ErrUnknownNode, from))
		}
		if e.selector == nil {
			if _, ok := g.nodes[e.to]; !ok && e.to != End {
				errs = append(errs, fmt.Errorf("%w: edge target %s", ErrUnknownNode, e.to))
			}
			continue
		}
		for target := range e.targets {
			if _, ok := g.nodes[target]; !ok && target != End {
				errs = append(errs, fmt.Errorf("%w: conditional target %s", ErrUnknownNode, target))
			}
		}
	}

	for name := range g.nodes {
		if _, ok := g.edges[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingEdge, name))
		}
	}

	return errors.Join(errs...)
}
