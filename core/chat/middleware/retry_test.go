package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/internal/utils"
)

var (
	rateLimited = &utils.APIError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests"}
	unavailable = &utils.APIError{StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	badRequest  = &utils.APIError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"}
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDefaultRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", rateLimited, true},
		{"503", unavailable, true},
		{"400", badRequest, false},
		{"wrapped 500", errors.Join(errors.New("ctx"), &utils.APIError{StatusCode: 500}), true},
		{"attempt deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryable(tt.err); got != tt.want {
				t.Errorf("DefaultRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryMiddleware_SuccessOnFirstTry(t *testing.T) {
	seq := &sequence{}
	chain := NewRetryMiddleware(fastRetry(3)).Generate(seq.generate)

	if _, err := chain(context.Background(), userRequest("hi")); err != nil {
		t.Fatal(err)
	}
	if seq.calls != 1 {
		t.Errorf("expected 1 call, got %d", seq.calls)
	}
}

func TestRetryMiddleware_RetryThenSuccess(t *testing.T) {
	seq := &sequence{errs: []error{rateLimited, unavailable}}
	chain := NewRetryMiddleware(fastRetry(3)).Generate(seq.generate)

	result, err := chain(context.Background(), userRequest("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := result.Response.Text(); text != "ok" {
		t.Errorf("unexpected text %q", text)
	}
	if seq.calls != 3 {
		t.Errorf("expected 3 calls, got %d", seq.calls)
	}
}

func TestRetryMiddleware_ExhaustsRetries(t *testing.T) {
	seq := &sequence{errs: []error{unavailable, unavailable, unavailable, unavailable, unavailable}}
	chain := NewRetryMiddleware(fastRetry(3)).Generate(seq.generate)

	_, err := chain(context.Background(), userRequest("hi"))
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("expected ErrRetryExhausted, got %v", err)
	}
	var apiErr *utils.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected the last API error to be wrapped, got %v", err)
	}
	if seq.calls != 4 {
		t.Errorf("expected 4 calls, got %d", seq.calls)
	}
}

func TestRetryMiddleware_NonRetryableError(t *testing.T) {
	seq := &sequence{errs: []error{badRequest}}
	chain := NewRetryMiddleware(fastRetry(3)).Generate(seq.generate)

	_, err := chain(context.Background(), userRequest("hi"))
	if !errors.Is(err, badRequest) || errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected the bare 400 error, got %v", err)
	}
	if seq.calls != 1 {
		t.Errorf("expected 1 call, got %d", seq.calls)
	}
}

func TestRetryMiddleware_ContextCancellation(t *testing.T) {
	seq := &sequence{errs: []error{rateLimited, rateLimited, rateLimited, rateLimited}}
	chain := NewRetryMiddleware(RetryConfig{
		MaxRetries:     10,
		InitialBackoff: 200 * time.Millisecond,
	}).Generate(seq.generate)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := chain(ctx, userRequest("hi"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("cancellation must not be reported as exhaustion")
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Errorf("retry loop ignored cancellation for %v", time.Since(start))
	}
}

func TestRetryMiddleware_CustomRetryable(t *testing.T) {
	flaky := errors.New("flaky")
	seq := &sequence{errs: []error{flaky}}
	cfg := fastRetry(2)
	cfg.RetryableFunc = func(err error) bool { return errors.Is(err, flaky) }

	if _, err := NewRetryMiddleware(cfg).Generate(seq.generate)(context.Background(), userRequest("hi")); err != nil {
		t.Fatal(err)
	}
	if seq.calls != 2 {
		t.Errorf("expected 2 calls, got %d", seq.calls)
	}
}

func TestRetryMiddleware_StreamOpenIsRetried(t *testing.T) {
	seq := &sequence{errs: []error{unavailable}}
	chain := NewRetryMiddleware(fastRetry(2)).Stream(seq.stream)

	result, err := chain(context.Background(), userRequest("hi"), stream.Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := result.Response()
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := resp.Text(); text != "ok" || seq.calls != 2 {
		t.Errorf("text %q after %d calls", text, seq.calls)
	}
}
