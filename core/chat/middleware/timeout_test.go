package middleware

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/providers/ai"
)

func slowGenerate(delay time.Duration) func(context.Context, *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
	return func(ctx context.Context, _ *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
		select {
		case <-time.After(delay):
			return okResult("ok"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestTimeoutMiddleware_Send(t *testing.T) {
	mw := NewTimeoutMiddleware(50 * time.Millisecond)

	if _, err := mw.Generate(slowGenerate(0))(context.Background(), userRequest("hi")); err != nil {
		t.Fatalf("fast call failed: %v", err)
	}
	if _, err := mw.Generate(slowGenerate(time.Second))(context.Background(), userRequest("hi")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestTimeoutMiddleware_CallerDeadlineWins(t *testing.T) {
	mw := NewTimeoutMiddleware(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := mw.Generate(slowGenerate(time.Second))(ctx, userRequest("hi"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("caller deadline ignored: %v", time.Since(start))
	}
}

// TestTimeoutMiddleware_StreamDeadlineCoversWholeStream checks that a stream
// that stalls after opening is ended by the deadline.
func TestTimeoutMiddleware_StreamDeadlineCoversWholeStream(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	stalled := func(ctx context.Context, _ *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error) {
		return stream.Process(ctx, pr, cb), nil
	}

	result, err := NewTimeoutMiddleware(30*time.Millisecond).Stream(stalled)(context.Background(), userRequest("hi"), stream.Callbacks{})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-result.Done():
	case <-time.After(time.Second):
		t.Fatal("stalled stream was not ended by the deadline")
	}
	if _, err := result.Response(); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestTimeoutMiddleware_StreamCompletes(t *testing.T) {
	seq := &sequence{}
	result, err := NewTimeoutMiddleware(time.Second).Stream(seq.stream)(context.Background(), userRequest("hi"), stream.Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := result.Response(); err != nil {
		t.Fatalf("stream failed: %v", err)
	}
}
