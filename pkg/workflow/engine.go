package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultStepLimit = 50

// NodeEvent is handed to the observer after every node execution.
type NodeEvent struct {
	ThreadID  string
	Node      string
	NextNode  string
	State     State
	Suspended bool
	Panicked  bool
	Duration  time.Duration
}

// Observer sees the merged state after each node.
type Observer func(ctx context.Context, event NodeEvent)

// PanicHandler turns a recovered node panic into a state update.
type PanicHandler func(node string, recovered interface{}) State

type Option func(*CompiledGraph)

// WithStepLimit caps the number of node executions per Invoke/Resume call.
func WithStepLimit(n int) Option {
	return func(g *CompiledGraph) {
		if n > 0 {
			g.stepLimit = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *CompiledGraph) {
		g.observers = append(g.observers, o)
	}
}

func WithPanicHandler(h PanicHandler) Option {
	return func(g *CompiledGraph) {
		g.panicHandler = h
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(g *CompiledGraph) {
		g.tracer = t
	}
}

func defaultTracer() trace.Tracer {
	return otel.Tracer("gruenerator-be/pkg/workflow")
}

func defaultPanicHandler(node string, recovered interface{}) State {
	return State{"error": fmt.Sprintf("node %s panicked: %v", node, recovered)}
}

// Interrupt is the payload a suspended run surfaces to its caller.
type Interrupt struct {
	Value interface{}
	Node  string
}

type RunResult struct {
	State      State
	Interrupts []Interrupt
}

// Interrupted reports whether the run stopped at a suspend point.
func (r *RunResult) Interrupted() bool {
	return len(r.Interrupts) > 0
}

// ResumeCommand continues a suspended thread. Resume is stored under
// ResumeKey, Update is merged with the graph's schema.
type ResumeCommand struct {
	Resume interface{}
	Update State
}

type CompiledGraph struct {
	schema       Schema
	nodes        map[string]NodeFunc
	edges        map[string]edge
	entry        string
	store        CheckpointStore
	stepLimit    int
	observers    []Observer
	panicHandler PanicHandler
	tracer       trace.Tracer
}

// Invoke runs the graph from the entry point.
func (g *CompiledGraph) Invoke(ctx context.Context, initial State, threadID string) (*RunResult, error) {
	state := g.schema.Merge(State{}, initial)
	return g.run(ctx, g.entry, state, threadID)
}

// Resume consumes the checkpoint of threadID and continues after the node
// that suspended. A second Resume for the same suspension returns
// ErrCheckpointNotFound.
func (g *CompiledGraph) Resume(ctx context.Context, cmd ResumeCommand, threadID string) (*RunResult, error) {
	if g.store == nil {
		return nil, ErrNoCheckpointStore
	}
	cp, err := g.store.Take(ctx, threadID)
	if err != nil {
		return nil, err
	}

	state := g.schema.Merge(cp.State, cmd.Update)
	if cmd.Resume != nil {
		state[ResumeKey] = cmd.Resume
	}

	if cp.NextNode == End {
		return &RunResult{State: state}, nil
	}
	if _, ok := g.nodes[cp.NextNode]; !ok {
		return nil, fmt.Errorf("%w: checkpoint points at %s", ErrUnknownNode, cp.NextNode)
	}
	return g.run(ctx, cp.NextNode, state, threadID)
}

func (g *CompiledGraph) run(ctx context.Context, start string, state State, threadID string) (*RunResult, error) {
	current := start
	for steps := 0; current != End; steps++ {
		if steps >= g.stepLimit {
			return &RunResult{State: state}, fmt.Errorf("%w (%d) at node %s", ErrStepLimit, g.stepLimit, current)
		}

		started := time.Now()
		outcome, panicked := g.execute(ctx, current, state, threadID)
		state = g.schema.Merge(state, outcome.update)

		next, err := g.next(current, state)
		if err != nil {
			return &RunResult{State: state}, err
		}

		if outcome.Suspended() {
			if g.store == nil {
				return &RunResult{State: state}, ErrNoCheckpointStore
			}
			cp := &Checkpoint{
				ThreadID:       threadID,
				NextNode:       next,
				State:          state.Clone(),
				InterruptValue: outcome.payload,
				CreatedAt:      time.Now(),
			}
			if err := g.store.Save(ctx, cp); err != nil {
				return &RunResult{State: state}, fmt.Errorf("save checkpoint: %w", err)
			}
		}

		g.notify(ctx, NodeEvent{
			ThreadID:  threadID,
			Node:      current,
			NextNode:  next,
			State:     state,
			Suspended: outcome.Suspended(),
			Panicked:  panicked,
			Duration:  time.Since(started),
		})

		if outcome.Suspended() {
			return &RunResult{
				State:      state,
				Interrupts: []Interrupt{{Value: outcome.payload, Node: current}},
			}, nil
		}
		current = next
	}
	return &RunResult{State: state}, nil
}

func (g *CompiledGraph) execute(ctx context.Context, name string, state State, threadID string) (outcome Outcome, panicked bool) {
	ctx, span := g.tracer.Start(ctx, "workflow.node "+name, trace.WithAttributes(
		attribute.String("workflow.node", name),
		attribute.String("workflow.thread_id", threadID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			handler := g.panicHandler
			if handler == nil {
				handler = defaultPanicHandler
			}
			span.SetStatus(codes.Error, fmt.Sprint(r))
			outcome = Continue(handler(name, r))
			panicked = true
		}
	}()

	// Nodes get a copy so a node mutating its input cannot bypass the schema.
	outcome = g.nodes[name](ctx, state.Clone())
	span.SetAttributes(attribute.Bool("workflow.suspended", outcome.Suspended()))
	return outcome, false
}

func (g *CompiledGraph) next(current string, state State) (string, error) {
	e := g.edges[current]
	if e.selector == nil {
		return e.to, nil
	}
	target := e.selector(state)
	if !e.targets[target] {
		return "", fmt.Errorf("%w: %s -> %q", ErrInvalidTransition, current, target)
	}
	return target, nil
}

func (g *CompiledGraph) notify(ctx context.Context, event NodeEvent) {
	for _, o := range g.observers {
		o(ctx, event)
	}
}
