package workflow_test

import (
	"context"
	"errors"
	"testing"

	"gruenerator-be/pkg/workflow"
	"gruenerator-be/pkg/workflow/workflowtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = workflow.Schema{
	"answers":  workflow.ShallowMerge,
	"metadata": workflow.ShallowMerge,
}

func buildQuestionGraph(t *testing.T, store workflow.CheckpointStore, observed *map[string]interface{}) *workflow.CompiledGraph {
	t.Helper()

	g := workflow.NewGraph(testSchema).
		AddNode("initiate", func(ctx context.Context, s workflow.State) workflow.Outcome {
			return workflow.Continue(workflow.State{"conversationState": "initiated", "metadata": map[string]interface{}{"startedAt": 1}})
		}).
		AddNode("await_answers", func(ctx context.Context, s workflow.State) workflow.Outcome {
			return workflow.Suspend([]string{"q1"}, workflow.State{"conversationState": "questions_asked"})
		}).
		AddNode("analyze_answers", func(ctx context.Context, s workflow.State) workflow.Outcome {
			answers := workflow.GetOr(s, "answers", map[string]interface{}{})
			*observed = answers
			return workflow.Continue(workflow.State{"conversationState": "answers_received", "metadata": map[string]interface{}{"analyzed": true}})
		}).
		AddEdge("initiate", "await_answers").
		AddEdge("await_answers", "analyze_answers").
		AddEdge("analyze_answers", workflow.End).
		SetEntryPoint("initiate")

	compiled, err := g.Compile(store)
	require.NoError(t, err)
	return compiled
}

func TestSuspendAndResume(t *testing.T) {
	store := workflowtest.NewMapStore()
	var observed map[string]interface{}
	graph := buildQuestionGraph(t, store, &observed)
	ctx := context.Background()

	res, err := graph.Invoke(ctx, workflow.State{"thema": "Radwege"}, "session-1")
	require.NoError(t, err)
	require.True(t, res.Interrupted())
	assert.Equal(t, []string{"q1"}, res.Interrupts[0].Value)
	assert.Equal(t, "await_answers", res.Interrupts[0].Node)
	assert.Equal(t, "questions_asked", res.State["conversationState"])
	assert.Nil(t, observed, "analyze_answers must not run before resume")
	assert.Equal(t, 1, store.Len())

	answers := map[string]interface{}{"q1": "Option A"}
	res, err = graph.Resume(ctx, workflow.ResumeCommand{
		Resume: answers,
		Update: workflow.State{"answers": map[string]interface{}{"round1": answers}},
	}, "session-1")
	require.NoError(t, err)
	assert.False(t, res.Interrupted())
	assert.Equal(t, "answers_received", res.State["conversationState"])

	round1, ok := observed["round1"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Option A", round1["q1"])
	assert.Equal(t, answers, res.State[workflow.ResumeKey])

	meta := res.State["metadata"].(map[string]interface{})
	assert.Equal(t, 1, meta["startedAt"])
	assert.Equal(t, true, meta["analyzed"])

	t.Run("checkpoint is consumed once", func(t *testing.T) {
		_, err := graph.Resume(ctx, workflow.ResumeCommand{Resume: answers}, "session-1")
		assert.ErrorIs(t, err, workflow.ErrCheckpointNotFound)
	})
}

func TestResumeUnknownThread(t *testing.T) {
	var observed map[string]interface{}
	graph := buildQuestionGraph(t, workflowtest.NewMapStore(), &observed)

	_, err := graph.Resume(context.Background(), workflow.ResumeCommand{}, "missing")
	assert.ErrorIs(t, err, workflow.ErrCheckpointNotFound)
}

func TestSchemaMerge(t *testing.T) {
	schema := workflow.Schema{"metadata": workflow.ShallowMerge}

	tests := []struct {
		name    string
		current workflow.State
		update  workflow.State
		want    workflow.State
	}{
		{
			name:    "overwrite replaces",
			current: workflow.State{"thema": "a"},
			update:  workflow.State{"thema": "b"},
			want:    workflow.State{"thema": "b"},
		},
		{
			name:    "nil keeps previous value",
			current: workflow.State{"thema": "a"},
			update:  workflow.State{"thema": nil},
			want:    workflow.State{"thema": "a"},
		},
		{
			name:    "shallow merge keeps earlier keys",
			current: workflow.State{"metadata": map[string]interface{}{"a": 1}},
			update:  workflow.State{"metadata": map[string]interface{}{"b": 2}},
			want:    workflow.State{"metadata": map[string]interface{}{"a": 1, "b": 2}},
		},
		{
			name:    "shallow merge converts typed maps",
			current: workflow.State{"metadata": map[string]interface{}{"a": 1}},
			update:  workflow.State{"metadata": map[string]string{"b": "x"}},
			want:    workflow.State{"metadata": map[string]interface{}{"a": 1, "b": "x"}},
		},
		{
			name:    "shallow merge into empty",
			current: workflow.State{},
			update:  workflow.State{"metadata": map[string]interface{}{"b": 2}},
			want:    workflow.State{"metadata": map[string]interface{}{"b": 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.current.Clone()
			got := schema.Merge(tt.current, tt.update)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, before, tt.current, "current must not be mutated")
		})
	}
}

func TestConditionalEdges(t *testing.T) {
	build := func(store workflow.CheckpointStore) *workflow.CompiledGraph {
		g := workflow.NewGraph(nil).
			AddNode("decide", func(ctx context.Context, s workflow.State) workflow.Outcome {
				return workflow.Continue(nil)
			}).
			AddNode("ask", func(ctx context.Context, s workflow.State) workflow.Outcome {
				return workflow.Continue(workflow.State{"path": "ask"})
			}).
			AddNode("generate", func(ctx context.Context, s workflow.State) workflow.Outcome {
				return workflow.Continue(workflow.State{"result": "done:" + workflow.GetOr(s, "path", "direct")})
			}).
			AddConditionalEdge("decide", func(s workflow.State) string {
				if workflow.GetOr(s, "needsQuestions", false) {
					return "ask"
				}
				return "generate"
			}, "ask", "generate").
			AddEdge("ask", "generate").
			AddEdge("generate", workflow.End).
			SetEntryPoint("decide")
		compiled, err := g.Compile(store)
		require.NoError(t, err)
		return compiled
	}

	graph := build(nil)

	res, err := graph.Invoke(context.Background(), workflow.State{"needsQuestions": true}, "t1")
	require.NoError(t, err)
	assert.Equal(t, "done:ask", res.State["result"])

	res, err = graph.Invoke(context.Background(), workflow.State{}, "t2")
	require.NoError(t, err)
	assert.Equal(t, "done:direct", res.State["result"])
}

func TestInvalidTransition(t *testing.T) {
	g := workflow.NewGraph(nil).
		AddNode("a", func(ctx context.Context, s workflow.State) workflow.Outcome { return workflow.Continue(nil) }).
		AddConditionalEdge("a", func(s workflow.State) string { return "nowhere" }).
		SetEntryPoint("a")
	compiled, err := g.Compile(nil)
	require.NoError(t, err)

	_, err = compiled.Invoke(context.Background(), nil, "t")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestCompileValidation(t *testing.T) {
	noop := func(ctx context.Context, s workflow.State) workflow.Outcome { return workflow.Continue(nil) }

	tests := []struct {
		name  string
		graph *workflow.Graph
		want  error
	}{
		{
			name:  "no entry point",
			graph: workflow.NewGraph(nil).AddNode("a", noop).AddEdge("a", workflow.End),
			want:  workflow.ErrNoEntryPoint,
		},
		{
			name:  "unknown edge target",
			graph: workflow.NewGraph(nil).AddNode("a", noop).AddEdge("a", "b").SetEntryPoint("a"),
			want:  workflow.ErrUnknownNode,
		},
		{
			name:  "missing outgoing edge",
			graph: workflow.NewGraph(nil).AddNode("a", noop).AddNode("b", noop).AddEdge("a", "b").SetEntryPoint("a"),
			want:  workflow.ErrMissingEdge,
		},
		{
			name:  "duplicate node",
			graph: workflow.NewGraph(nil).AddNode("a", noop).AddNode("a", noop).AddEdge("a", workflow.End).SetEntryPoint("a"),
			want:  workflow.ErrDuplicateNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.graph.Compile(nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStepLimit(t *testing.T) {
	g := workflow.NewGraph(nil).
		AddNode("loop", func(ctx context.Context, s workflow.State) workflow.Outcome {
			return workflow.Continue(workflow.State{"n": workflow.GetOr(s, "n", 0) + 1})
		}).
		AddConditionalEdge("loop", func(s workflow.State) string { return "loop" }, "loop").
		SetEntryPoint("loop")
	compiled, err := g.Compile(nil, workflow.WithStepLimit(5))
	require.NoError(t, err)

	res, err := compiled.Invoke(context.Background(), nil, "t")
	assert.ErrorIs(t, err, workflow.ErrStepLimit)
	assert.Equal(t, 5, res.State["n"])
}

func TestPanicRecovery(t *testing.T) {
	var events []workflow.NodeEvent
	g := workflow.NewGraph(nil).
		AddNode("boom", func(ctx context.Context, s workflow.State) workflow.Outcome {
			panic(errors.New("kaputt"))
		}).
		AddNode("after", func(ctx context.Context, s workflow.State) workflow.Outcome {
			return workflow.Continue(workflow.State{"reached": true})
		}).
		AddEdge("boom", "after").
		AddEdge("after", workflow.End).
		SetEntryPoint("boom")

	compiled, err := g.Compile(nil,
		workflow.WithObserver(func(ctx context.Context, e workflow.NodeEvent) { events = append(events, e) }),
		workflow.WithPanicHandler(func(node string, r interface{}) workflow.State {
			return workflow.State{"conversationState": "error", "error": node}
		}),
	)
	require.NoError(t, err)

	res, err := compiled.Invoke(context.Background(), nil, "t")
	require.NoError(t, err)
	assert.Equal(t, "error", res.State["conversationState"])
	assert.Equal(t, "boom", res.State["error"])
	assert.Equal(t, true, res.State["reached"])

	require.Len(t, events, 2)
	assert.True(t, events[0].Panicked)
	assert.Equal(t, "after", events[0].NextNode)
	assert.False(t, events[1].Panicked)
}

func TestSuspendAtLastNode(t *testing.T) {
	store := workflowtest.NewMapStore()
	g := workflow.NewGraph(nil).
		AddNode("wait", func(ctx context.Context, s workflow.State) workflow.Outcome {
			return workflow.Suspend("payload", nil)
		}).
		AddEdge("wait", workflow.End).
		SetEntryPoint("wait")
	compiled, err := g.Compile(store)
	require.NoError(t, err)

	res, err := compiled.Invoke(context.Background(), workflow.State{"x": 1}, "t")
	require.NoError(t, err)
	require.True(t, res.Interrupted())

	res, err = compiled.Resume(context.Background(), workflow.ResumeCommand{Resume: "ok"}, "t")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.State[workflow.ResumeKey])
	assert.Equal(t, 1, res.State["x"])
}

func TestGetDecodesJSONShapes(t *testing.T) {
	type question struct {
		ID      string   `json:"id"`
		Options []string `json:"options"`
	}
	s := workflow.State{"questions": []interface{}{
		map[string]interface{}{"id": "q1", "options": []interface{}{"a", "b"}},
	}}

	got, ok := workflow.Get[[]question](s, "questions")
	require.True(t, ok)
	assert.Equal(t, []question{{ID: "q1", Options: []string{"a", "b"}}}, got)

	_, ok = workflow.Get[int](s, "missing")
	assert.False(t, ok)
}
