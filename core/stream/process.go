package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/observability"
)

// Callbacks are optional hooks run synchronously on the goroutine draining
// the stream: OnChunk once per fragment in arrival order, then OnComplete
// once with the aggregate. An error from either becomes the stream's
// terminal error. Hooks must not call back into the Result.
type Callbacks struct {
	OnChunk    func(fragment *ai.GenerateContentResponse) error
	OnComplete func(response *ai.GenerateContentResponse) error
}

// source yields decoded fragments and io.EOF at the end of input.
type source func() (*ai.GenerateContentResponse, error)

// Result is the dual view over one stream.
type Result struct {
	ctx    context.Context
	next   source
	closer io.Closer
	cb     Callbacks
	agg    Aggregator

	closeOnce sync.Once
	stopAfter func() bool

	// drainMu serializes consumers; it is held while a fragment is read and
	// processed.
	drainMu sync.Mutex

	stateMu  sync.Mutex
	aborted  error
	finished bool
	reported bool
	response *ai.GenerateContentResponse
	err      error
	hooks    []func(*ai.GenerateContentResponse, error)
	done     chan struct{}
}

// Process starts reading SSE records from body. Nothing is read until the
// caller consumes Chunks or calls Response. Cancelling ctx terminates the
// stream with ctx's error and closes body.
func Process(ctx context.Context, body io.ReadCloser, cb Callbacks) *Result {
	scanner := utils.NewSSEScanner(body)
	next := func() (*ai.GenerateContentResponse, error) {
		payload, err := scanner.Next()
		if err != nil {
			return nil, err
		}
		var fragment ai.GenerateContentResponse
		if err := json.Unmarshal([]byte(payload), &fragment); err != nil {
			return nil, fmt.Errorf("%w: %v", ai.ErrMalformedChunk, err)
		}
		return &fragment, nil
	}
	return newResult(ctx, next, body, cb)
}

// FromResponse wraps an already buffered response as a one-fragment stream.
func FromResponse(ctx context.Context, resp *ai.GenerateContentResponse, cb Callbacks) *Result {
	delivered := false
	next := func() (*ai.GenerateContentResponse, error) {
		if delivered {
			return nil, io.EOF
		}
		delivered = true
		return resp, nil
	}
	return newResult(ctx, next, nil, cb)
}

func newResult(ctx context.Context, next source, closer io.Closer, cb Callbacks) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &Result{
		ctx:    ctx,
		next:   next,
		closer: closer,
		cb:     cb,
		done:   make(chan struct{}),
	}
	r.stopAfter = context.AfterFunc(ctx, func() {
		r.abort(ctx.Err())
	})
	return r
}

// Chunks returns the fragment sequence. It is single pass: fragments already
// delivered (to any consumer) are not offered again. A failure is yielded
// once as the last element. Breaking out of the loop abandons the stream
// with ai.ErrStreamClosed.
func (r *Result) Chunks() iter.Seq2[*ai.GenerateContentResponse, error] {
	return func(yield func(*ai.GenerateContentResponse, error) bool) {
		for {
			fragment, more, err := r.step()
			if err != nil {
				yield(nil, err)
				return
			}
			if !more {
				return
			}
			if !yield(fragment, nil) {
				r.abort(ai.ErrStreamClosed)
				return
			}
		}
	}
}

// Response drains whatever the caller has not consumed and returns the
// aggregate, or the stream's terminal error. After it returns, Chunks yields
// nothing more.
func (r *Result) Response() (*ai.GenerateContentResponse, error) {
	for {
		_, more, err := r.step()
		if err != nil || !more {
			break
		}
	}
	<-r.done
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.response, r.err
}

// Done is closed once the stream reaches a terminal state and its OnFinish
// hooks have returned.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Close abandons the stream. Its terminal error becomes ai.ErrStreamClosed
// unless it had already finished.
func (r *Result) Close() error {
	r.abort(ai.ErrStreamClosed)
	return nil
}

// OnFinish registers fn to run once, after OnComplete, when the stream
// reaches a terminal state: success, failure, Close, an abandoned Chunks
// loop or context cancellation. If the stream has already finished, fn runs
// immediately.
func (r *Result) OnFinish(fn func(*ai.GenerateContentResponse, error)) {
	r.stateMu.Lock()
	if !r.finished {
		r.hooks = append(r.hooks, fn)
		r.stateMu.Unlock()
		return
	}
	resp, err := r.response, r.err
	r.stateMu.Unlock()
	fn(resp, err)
}

// step reads and processes one fragment. more is false once the stream has
// finished; the terminal error is returned to exactly one caller.
func (r *Result) step() (fragment *ai.GenerateContentResponse, more bool, err error) {
	r.drainMu.Lock()
	defer r.drainMu.Unlock()

	if r.isFinished() {
		return nil, false, r.takeErr()
	}
	if err := r.abortErr(); err != nil {
		r.finish(nil, err)
		return nil, false, r.takeErr()
	}

	fragment, err = r.next()
	switch abortErr := r.abortErr(); {
	case abortErr != nil:
		r.finish(nil, abortErr)
	case errors.Is(err, io.EOF):
		r.finish(r.finalize())
	case err != nil:
		r.finish(nil, err)
	default:
		if err := r.handle(fragment); err != nil {
			r.finish(nil, err)
			break
		}
		// An abort that lost the race for drainMu is settled here.
		if abortErr := r.abortErr(); abortErr != nil {
			r.finish(nil, abortErr)
		}
		return fragment, true, nil
	}
	return nil, false, r.takeErr()
}

func (r *Result) handle(fragment *ai.GenerateContentResponse) error {
	if err := validateFragment(fragment); err != nil {
		return err
	}
	if r.cb.OnChunk != nil {
		if err := r.cb.OnChunk(fragment); err != nil {
			return err
		}
	}
	if err := r.agg.Add(fragment); err != nil {
		return err
	}
	if span := observability.SpanFromContext(r.ctx); span != nil {
		span.AddEvent(observability.EventStreamChunk,
			observability.Int(observability.AttrStreamChunks, r.agg.Count()),
			observability.Int(observability.AttrStreamCandidates, len(fragment.Candidates)),
		)
	}
	return nil
}

func (r *Result) finalize() (*ai.GenerateContentResponse, error) {
	resp, err := r.agg.Result()
	if err != nil {
		return nil, err
	}
	if r.cb.OnComplete != nil {
		if err := r.cb.OnComplete(resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// validateFragment rejects blocked prompts and records that are not a
// response shell at all.
func validateFragment(fragment *ai.GenerateContentResponse) error {
	if fragment == nil {
		return fmt.Errorf("%w: empty record", ai.ErrMalformedChunk)
	}
	if err := ai.BlockedPromptError(fragment); err != nil {
		return err
	}
	if len(fragment.Candidates) == 0 && fragment.UsageMetadata == nil && fragment.PromptFeedback == nil {
		return fmt.Errorf("%w: record has no candidates", ai.ErrMalformedChunk)
	}
	return nil
}

// abort records err as the terminal error, unblocks any pending read and,
// when nobody is draining, finishes the stream right away.
func (r *Result) abort(err error) {
	r.stateMu.Lock()
	if r.finished {
		r.stateMu.Unlock()
		return
	}
	if r.aborted == nil {
		r.aborted = err
	}
	err = r.aborted
	r.stateMu.Unlock()

	r.closeBody()
	if r.drainMu.TryLock() {
		r.finish(nil, err)
		r.drainMu.Unlock()
	}
}

func (r *Result) abortErr() error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.aborted
}

// takeErr hands out the terminal error once.
func (r *Result) takeErr() error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if r.reported {
		return nil
	}
	r.reported = true
	return r.err
}

func (r *Result) isFinished() bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.finished
}

// finish settles the stream exactly once and runs the OnFinish hooks.
func (r *Result) finish(resp *ai.GenerateContentResponse, err error) {
	r.stateMu.Lock()
	if r.finished {
		r.stateMu.Unlock()
		return
	}
	r.finished = true
	r.response, r.err = resp, err
	hooks := r.hooks
	r.hooks = nil
	r.stateMu.Unlock()
	defer close(r.done)

	r.stopAfter()
	r.closeBody()

	if span := observability.SpanFromContext(r.ctx); span != nil {
		attrs := []observability.Attribute{observability.Int(observability.AttrStreamChunks, r.agg.Count())}
		if err != nil {
			attrs = append(attrs, observability.Error(err))
		}
		span.AddEvent(observability.EventStreamComplete, attrs...)
	}
	if observer := observability.ObserverFromContext(r.ctx); observer != nil {
		observer.Histogram(observability.MetricStreamChunks).Record(context.WithoutCancel(r.ctx), float64(r.agg.Count()))
	}
	for _, hook := range hooks {
		hook(resp, err)
	}
}

func (r *Result) closeBody() {
	if r.closer == nil {
		return
	}
	r.closeOnce.Do(func() {
		utils.CloseWithLog(r.closer)
	})
}
