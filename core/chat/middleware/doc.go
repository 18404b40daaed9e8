// Package middleware provides built-in model middlewares for a chat session.
// Each constructor returns a [chat.MiddlewareConfig] ready to be passed to
// [chat.WithMiddleware].
//
// # Available Middleware
//
//   - [NewRetryMiddleware]: retries transient failures (HTTP 429 / 5xx) with
//     exponential backoff and jitter. For streams only the call that opens
//     the stream is retried.
//
//   - [NewTimeoutMiddleware]: bounds each model call. For streams the
//     deadline covers the whole stream, not just the first byte.
//
//   - [NewLoggingMiddleware]: emits slog entries before and after every model
//     call at three verbosity levels.
//
// # Usage
//
//	session, err := chat.New(model, chat.Params{},
//	    chat.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(30*time.Second),
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 3}),
//	        middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	    ),
//	)
//
// The first entry is the outermost wrapper, so a request travels
//
//	Timeout → Retry → Logging → Model
//
// and the response travels back in reverse.
package middleware
