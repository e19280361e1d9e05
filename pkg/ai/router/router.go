package router

import (
	"context"
	"fmt"

	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/pkg/ai/pipeline"
	"gruenerator-be/pkg/intent"
	"gruenerator-be/pkg/llm"
)

// Runner executes one generation pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// BaseContext is shared, read-only input for every intent of one message.
type BaseContext struct {
	UserID  string
	Message string
	History []llm.Message
}

// Router maps intent routes to runners. Unknown routes use the universal runner.
type Router struct {
	runners map[string]Runner
	logger  logger.ILogger
}

func NewRouter(runners map[string]Runner, log logger.ILogger) (*Router, error) {
	if _, ok := runners[intent.RouteUniversal]; !ok {
		return nil, fmt.Errorf("router: %q runner is required", intent.RouteUniversal)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	copied := make(map[string]Runner, len(runners))
	for k, v := range runners {
		copied[k] = v
	}
	return &Router{runners: copied, logger: log}, nil
}

// Route runs a single intent. Parameters are derived from the original
// message for this intent alone.
func (r *Router) Route(ctx context.Context, in intent.Intent, base BaseContext) (*pipeline.Result, error) {
	runner, ok := r.runners[in.Route]
	if !ok {
		r.logger.Warn("ROUTER", "Unknown route, using universal", map[string]interface{}{"route": in.Route, "agent": in.Agent})
		runner = r.runners[intent.RouteUniversal]
	}

	return runner.Run(ctx, pipeline.Request{
		UserID:  base.UserID,
		Agent:   in.Agent,
		Route:   in.Route,
		Message: base.Message,
		Params:  pipeline.DeriveParams(base.Message, in),
		History: base.History,
	})
}
