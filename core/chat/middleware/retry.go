package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/leofalp/genchat/core/chat"
	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/observability"
)

// RetryConfig holds the tuning parameters for the retry middleware. Zero
// values are replaced with the defaults documented on each field.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first failure. A value
	// of 3 means the model is called at most 4 times. Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier. Default: 2.0.
	BackoffFactor float64

	// JitterFraction randomizes each wait by ± this fraction. Default: 0.1.
	JitterFraction float64

	// MaxElapsedTime bounds the whole retry loop. Default: 2m.
	MaxElapsedTime time.Duration

	// RetryableFunc decides whether an error is transient.
	// Default: [DefaultRetryable].
	RetryableFunc func(error) bool
}

// DefaultRetryable retries API errors with status 429 or 5xx and attempts
// that ran into their own deadline.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.MaxElapsedTime == 0 {
		config.MaxElapsedTime = 2 * time.Minute
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = DefaultRetryable
	}
}

// NewRetryMiddleware retries failed model calls according to config.
//
// Streaming sends are retried only while opening the stream; once a stream
// handle exists no retry happens, because fragments may already have been
// delivered to the caller.
//
// On exhaustion the returned error wraps both [ErrRetryExhausted] and the last
// model error. Non-retryable errors and context cancellation are returned
// unchanged.
func NewRetryMiddleware(config RetryConfig) chat.MiddlewareConfig {
	applyRetryDefaults(&config)

	return chat.MiddlewareConfig{
		Generate: func(next chat.GenerateFunc) chat.GenerateFunc {
			return func(ctx context.Context, req *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
				return retry(ctx, config, func() (*ai.GenerateContentResult, error) {
					return next(ctx, req)
				})
			}
		},
		Stream: func(next chat.StreamFunc) chat.StreamFunc {
			return func(ctx context.Context, req *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error) {
				return retry(ctx, config, func() (*stream.Result, error) {
					return next(ctx, req, cb)
				})
			}
		},
	}
}

func retry[T any](ctx context.Context, config RetryConfig, call func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = config.InitialBackoff
	bo.MaxInterval = config.MaxBackoff
	bo.Multiplier = config.BackoffFactor
	bo.RandomizationFactor = config.JitterFraction
	bo.Reset()

	attempts := 0
	operation := func() (T, error) {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, backoff.Permanent(err)
		}
		attempts++
		result, err := call()
		if err == nil {
			return result, nil
		}
		if !config.RetryableFunc(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	notify := func(err error, wait time.Duration) {
		if span := observability.SpanFromContext(ctx); span != nil {
			span.AddEvent(observability.EventRetryAttempt,
				observability.Int(observability.AttrChatAttempt, attempts),
				observability.Duration(observability.AttrDuration, wait),
				observability.Error(err),
			)
		}
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(config.MaxRetries+1)),
		backoff.WithMaxElapsedTime(config.MaxElapsedTime),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return result, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return result, permanent.Err
	}
	if ctx.Err() != nil || !config.RetryableFunc(err) {
		return result, err
	}
	return result, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err)
}
