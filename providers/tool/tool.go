package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leofalp/genchat/core/parse"
	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/observability"
)

// Tool is a function the model may call.
type Tool interface {
	Declaration() ai.FunctionDeclaration
	// Call runs the function for call and returns its result.
	Call(ctx context.Context, call ai.FunctionCall) (any, error)
}

// Func is a Tool backed by a typed Go function.
type Func[I, O any] struct {
	declaration ai.FunctionDeclaration
	function    func(ctx context.Context, input I) (O, error)
}

var _ Tool = (*Func[struct{}, struct{}])(nil)

type funcOptions struct {
	description string
}

type Option func(*funcOptions)

// WithDescription tells the model when to use the tool.
func WithDescription(description string) Option {
	return func(o *funcOptions) {
		o.description = description
	}
}

// New declares function under name. The parameters schema is inferred from
// I, which must be a struct.
func New[I, O any](name string, function func(ctx context.Context, input I) (O, error), opts ...Option) (*Func[I, O], error) {
	var o funcOptions
	for _, opt := range opts {
		opt(&o)
	}
	declaration, err := ai.NewFunctionDeclaration[I](name, o.description)
	if err != nil {
		return nil, err
	}
	return &Func[I, O]{declaration: declaration, function: function}, nil
}

func (t *Func[I, O]) Declaration() ai.FunctionDeclaration {
	return t.declaration
}

// Call decodes the arguments into I and runs the function. Input, output,
// duration and errors are recorded on the span in ctx.
func (t *Func[I, O]) Call(ctx context.Context, call ai.FunctionCall) (any, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventToolExecutionStart,
			observability.String(observability.AttrToolName, t.declaration.Name),
			observability.String(observability.AttrToolInput, string(call.Args)),
		)
		defer span.AddEvent(observability.EventToolExecutionEnd)
	}

	fail := func(err error) (any, error) {
		if span != nil {
			span.RecordError(err)
			span.SetAttributes(observability.String(observability.AttrToolError, err.Error()))
		}
		return nil, err
	}

	input, err := parse.FunctionArgsAs[I](call)
	if err != nil {
		return fail(err)
	}

	start := time.Now()
	output, err := t.function(ctx, input)
	duration := time.Since(start)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", t.declaration.Name, err))
	}

	if span != nil {
		encoded, _ := json.Marshal(output)
		span.SetAttributes(
			observability.String(observability.AttrToolOutput, utils.TruncateString(string(encoded), utils.DefaultMaxStringLength)),
			observability.Duration(observability.AttrToolDuration, duration),
		)
	}
	return output, nil
}
