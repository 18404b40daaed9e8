package chat

import (
	"context"

	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/providers/ai"
)

// GenerateFunc sends a buffered request to the model. It is the unit
// threaded through the middleware chain.
type GenerateFunc func(ctx context.Context, req *ai.GenerateContentRequest) (*ai.GenerateContentResult, error)

// StreamFunc opens a streaming request.
type StreamFunc func(ctx context.Context, req *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error)

// Middleware wraps a GenerateFunc. The first middleware passed to
// [WithMiddleware] is the outermost wrapper.
type Middleware func(next GenerateFunc) GenerateFunc

// StreamMiddleware is the streaming counterpart of Middleware.
type StreamMiddleware func(next StreamFunc) StreamFunc

// MiddlewareConfig pairs a buffered middleware with its optional streaming
// counterpart. Generate is required; a nil Stream means streaming sends
// bypass this entry.
type MiddlewareConfig struct {
	Generate Middleware
	Stream   StreamMiddleware
}

// buildGenerateChain applies middlewares in reverse so that middlewares[0]
// runs first.
func buildGenerateChain(model Model, middlewares []MiddlewareConfig) GenerateFunc {
	var chain GenerateFunc = model.GenerateContent
	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i].Generate(chain)
	}
	return chain
}

func buildStreamChain(model Model, middlewares []MiddlewareConfig) StreamFunc {
	var chain StreamFunc = model.GenerateContentStream
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}
	return chain
}
