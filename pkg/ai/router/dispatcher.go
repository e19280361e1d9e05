package router

import (
	"context"
	"fmt"
	"sync"

	"gruenerator-be/pkg/ai/pipeline"
	"gruenerator-be/pkg/intent"
)

// IntentResult is the outcome of one intent in a multi-intent dispatch.
type IntentResult struct {
	Success bool             `json:"success"`
	Agent   intent.Agent     `json:"agent"`
	Route   string           `json:"route"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type DispatchMetadata struct {
	TotalIntents      int `json:"totalIntents"`
	SuccessfulIntents int `json:"successfulIntents"`
	FailedIntents     int `json:"failedIntents"`
}

type DispatchResult struct {
	Success  bool             `json:"success"`
	Results  []IntentResult   `json:"results"`
	Metadata DispatchMetadata `json:"metadata"`
}

// DispatchMultiIntent runs every intent concurrently and waits for all of
// them. A failing or panicking intent is recorded in its slot and never
// cancels its siblings. Results keep the order of intents.
func (r *Router) DispatchMultiIntent(ctx context.Context, intents []intent.Intent, base BaseContext) *DispatchResult {
	results := make([]IntentResult, len(intents))

	var wg sync.WaitGroup
	for i, in := range intents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.dispatchOne(ctx, in, base)
		}()
	}
	wg.Wait()

	out := &DispatchResult{
		Results:  results,
		Metadata: DispatchMetadata{TotalIntents: len(intents)},
	}
	for _, res := range results {
		if res.Success {
			out.Metadata.SuccessfulIntents++
		} else {
			out.Metadata.FailedIntents++
		}
	}
	out.Success = out.Metadata.SuccessfulIntents > 0
	return out
}

func (r *Router) dispatchOne(ctx context.Context, in intent.Intent, base BaseContext) (res IntentResult) {
	res = IntentResult{Agent: in.Agent, Route: in.Route}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("DISPATCH", "Intent panicked", map[string]interface{}{"agent": in.Agent, "panic": fmt.Sprint(p)})
			res.Success = false
			res.Result = nil
			res.Error = fmt.Sprintf("internal error: %v", p)
		}
	}()

	result, err := r.Route(ctx, in, base)
	if err != nil {
		r.logger.Warn("DISPATCH", "Intent failed", map[string]interface{}{"agent": in.Agent, "error": err.Error()})
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Result = result
	return res
}
