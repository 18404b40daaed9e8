package middleware

import (
	"context"
	"time"

	"github.com/leofalp/genchat/core/chat"
	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/providers/ai"
)

// NewTimeoutMiddleware bounds every model call by timeout.
//
// For buffered sends the deadline covers the round trip. For streams it
// covers the whole stream: the context is cancelled once the stream reaches a
// terminal state, and a stream still running at the deadline ends with
// context.DeadlineExceeded (which also frees the session).
//
// A shorter deadline already on the caller's context wins.
func NewTimeoutMiddleware(timeout time.Duration) chat.MiddlewareConfig {
	return chat.MiddlewareConfig{
		Generate: func(next chat.GenerateFunc) chat.GenerateFunc {
			return func(ctx context.Context, req *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return next(ctx, req)
			}
		},
		Stream: func(next chat.StreamFunc) chat.StreamFunc {
			return func(ctx context.Context, req *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				result, err := next(ctx, req, cb)
				if err != nil {
					cancel()
					return nil, err
				}
				result.OnFinish(func(*ai.GenerateContentResponse, error) { cancel() })
				return result, nil
			}
		},
	}
}
