package chat

import (
	"github.com/leofalp/genchat/providers/memory"
	"github.com/leofalp/genchat/providers/observability"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	memory      memory.Provider
	observer    observability.Provider
	sessionID   string
	middlewares []MiddlewareConfig
}

// WithMemory sets the transcript store. The default is an in-process store.
func WithMemory(m memory.Provider) Option {
	return func(o *options) {
		o.memory = m
	}
}

// WithObserver enables tracing, metrics and logging for every send.
func WithObserver(p observability.Provider) Option {
	return func(o *options) {
		o.observer = p
	}
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}

// WithMiddleware appends model middlewares. See [MiddlewareConfig].
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, middlewares...)
	}
}
