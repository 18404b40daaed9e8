package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/memory"
	"github.com/leofalp/genchat/providers/memory/inmemory"
	"github.com/leofalp/genchat/providers/observability"
)

// ErrNoModel is returned by New when model is nil.
var ErrNoModel = errors.New("chat: model is required")

// ErrCountUnsupported is returned by CountTokens when the model cannot count.
var ErrCountUnsupported = errors.New("chat: model does not support token counting")

// Session is a conversation with one model. It is safe for concurrent use;
// sends are applied in the order they acquire the gate.
type Session struct {
	id       string
	model    Model
	params   Params
	memory   memory.Provider
	observer observability.Provider
	gate     *gate

	generate GenerateFunc
	stream   StreamFunc
}

// New creates a session. params.History is validated and appended to the
// memory store, after any turns the store already holds (a resumed
// session); the combined transcript must alternate user/model.
func New(model Model, params Params, opts ...Option) (*Session, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.memory == nil {
		o.memory = inmemory.New()
	}
	if o.sessionID == "" {
		o.sessionID = uuid.NewString()
	}
	for i, mw := range o.middlewares {
		if mw.Generate == nil {
			return nil, fmt.Errorf("chat: middleware %d has a nil Generate function", i)
		}
	}

	ctx := context.Background()
	existing, err := o.memory.AllContents(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat: load history: %w", err)
	}
	if err := ai.ValidateHistory(slices.Concat(existing, params.History)); err != nil {
		return nil, err
	}
	if len(params.History) > 0 {
		if err := o.memory.AppendContents(ctx, params.History...); err != nil {
			return nil, fmt.Errorf("chat: seed history: %w", err)
		}
	}
	params.History = nil

	return &Session{
		id:       o.sessionID,
		model:    model,
		params:   params,
		memory:   o.memory,
		observer: o.observer,
		gate:     newGate(),
		generate: buildGenerateChain(model, o.middlewares),
		stream:   buildStreamChain(model, o.middlewares),
	}, nil
}

// SessionID identifies the conversation, e.g. for a persistent store.
func (s *Session) SessionID() string {
	return s.id
}

// History returns a snapshot of the transcript. Mutating it does not affect
// the session.
func (s *Session) History(ctx context.Context) ([]ai.Content, error) {
	history, err := s.memory.AllContents(ctx)
	if err != nil {
		return nil, err
	}
	return ai.CloneContents(history), nil
}

// SendMessage sends message as a new user turn and waits for the full
// response. message accepts the forms understood by [ai.NewUserContent].
//
// On success the user turn and the first candidate are appended to the
// history. A blocked or empty response yields an error matching
// ai.ErrBlockedResponse and leaves the history unchanged.
func (s *Session) SendMessage(ctx context.Context, message ...any) (*ai.GenerateContentResult, error) {
	ctx, obs := s.observe(ctx, observability.SpanChatSendMessage)
	result, err := s.sendMessage(ctx, obs, message)
	var resp *ai.GenerateContentResponse
	if result != nil {
		resp = result.Response
	}
	obs.end(ctx, resp, err)
	return result, err
}

func (s *Session) sendMessage(ctx context.Context, obs *sendObservation, message []any) (*ai.GenerateContentResult, error) {
	release, err := s.acquire(ctx, obs)
	if err != nil {
		return nil, err
	}
	defer func() {
		release()
		obs.event(observability.EventGateReleased)
	}()

	turn, contents, err := s.prepare(ctx, obs, message)
	if err != nil {
		return nil, err
	}

	result, err := s.generate(ctx, s.params.request(contents))
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ai.ResponseError(nil)
	}
	if err := ai.ResponseError(result.Response); err != nil {
		return nil, err
	}

	modelTurn, _ := ai.ModelTurn(result.Response)
	if err := ai.ValidateHistory(append(contents, modelTurn)); err != nil {
		return nil, err
	}
	// The response is already paid for; record it even if ctx ends now.
	if err := s.memory.AppendContents(context.WithoutCancel(ctx), turn, modelTurn); err != nil {
		return nil, fmt.Errorf("chat: record turns: %w", err)
	}
	obs.event(observability.EventHistoryCommitted, observability.Int(observability.AttrChatHistoryLength, len(contents)+1))
	return result, nil
}

// SendMessageStream sends message as a new user turn and returns the
// response stream. The user turn is recorded once the stream is open; the
// model turn is recorded when the stream completes with a valid response,
// before cb.OnComplete runs. If the stream ends any other way the user turn
// is removed again.
//
// The session stays busy until the stream reaches a terminal state: it is
// drained, the Chunks loop is left early, Result.Close is called or ctx is
// cancelled. Until then further sends wait.
func (s *Session) SendMessageStream(ctx context.Context, cb stream.Callbacks, message ...any) (*stream.Result, error) {
	ctx, obs := s.observe(ctx, observability.SpanChatSendMessageStream)

	release, err := s.acquire(ctx, obs)
	if err != nil {
		obs.end(ctx, nil, err)
		return nil, err
	}
	fail := func(err error) (*stream.Result, error) {
		release()
		obs.event(observability.EventGateReleased)
		obs.end(ctx, nil, err)
		return nil, err
	}

	turn, contents, err := s.prepare(ctx, obs, message)
	if err != nil {
		return fail(err)
	}

	commitCtx := context.WithoutCancel(ctx)
	var committed atomic.Bool
	wrapped := stream.Callbacks{
		OnChunk: cb.OnChunk,
		OnComplete: func(resp *ai.GenerateContentResponse) error {
			if ai.IsValidResponse(resp) {
				modelTurn, _ := ai.ModelTurn(resp)
				if err := ai.ValidateHistory(append(slices.Clone(contents), modelTurn)); err != nil {
					return err
				}
				if err := s.memory.AppendContents(commitCtx, modelTurn); err != nil {
					return fmt.Errorf("chat: record model turn: %w", err)
				}
				committed.Store(true)
				obs.event(observability.EventHistoryCommitted, observability.Int(observability.AttrChatHistoryLength, len(contents)+1))
			}
			if cb.OnComplete != nil {
				return cb.OnComplete(resp)
			}
			return nil
		},
	}

	result, err := s.stream(ctx, s.params.request(contents), wrapped)
	if err != nil {
		return fail(err)
	}
	if result == nil {
		return fail(errors.New("chat: model returned no stream"))
	}

	if err := s.memory.AppendContents(commitCtx, turn); err != nil {
		_ = result.Close()
		return fail(fmt.Errorf("chat: record user turn: %w", err))
	}

	result.OnFinish(func(resp *ai.GenerateContentResponse, err error) {
		defer func() {
			release()
			obs.event(observability.EventGateReleased)
		}()
		if !committed.Load() {
			s.rollback(commitCtx, obs)
			if err == nil {
				err = ai.ResponseError(resp)
			}
		}
		obs.end(commitCtx, resp, err)
	})
	return result, nil
}

// Reset clears the transcript. It waits for any in-flight send.
func (s *Session) Reset(ctx context.Context) error {
	release, err := s.gate.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.memory.ClearContents(ctx)
}

// CountTokens reports how many tokens the history plus message would use.
func (s *Session) CountTokens(ctx context.Context, message ...any) (*ai.CountTokensResponse, error) {
	counter, ok := s.model.(TokenCounter)
	if !ok {
		return nil, ErrCountUnsupported
	}
	if s.observer != nil {
		var span observability.Span
		ctx, span = s.observer.StartSpan(ctx, observability.SpanLLMCountTokens,
			observability.String(observability.AttrChatSessionID, s.id))
		ctx = observability.ContextWithSpan(ctx, span)
		defer span.End()
	}
	history, err := s.memory.AllContents(ctx)
	if err != nil {
		return nil, err
	}
	if len(message) > 0 {
		turn, err := ai.NewUserContent(message...)
		if err != nil {
			return nil, err
		}
		history = append(history, turn)
	}
	return counter.CountTokens(ctx, s.params.request(history))
}

func (s *Session) acquire(ctx context.Context, obs *sendObservation) (func(), error) {
	waitStart := time.Now()
	release, err := s.gate.acquire(ctx)
	if err != nil {
		return nil, err
	}
	obs.event(observability.EventGateAcquired, observability.Duration(observability.AttrChatGateWait, time.Since(waitStart)))
	return release, nil
}

// prepare normalizes message into a user turn and returns it together with
// the request contents: a snapshot of the history followed by the turn.
func (s *Session) prepare(ctx context.Context, obs *sendObservation, message []any) (ai.Content, []ai.Content, error) {
	turn, err := ai.NewUserContent(message...)
	if err != nil {
		return ai.Content{}, nil, err
	}
	history, err := s.memory.AllContents(ctx)
	if err != nil {
		return ai.Content{}, nil, fmt.Errorf("chat: load history: %w", err)
	}
	contents := append(history, turn)
	if err := ai.ValidateHistory(contents); err != nil {
		return ai.Content{}, nil, err
	}
	obs.setAttributes(
		observability.Int(observability.AttrChatHistoryLength, len(history)),
		observability.Int(observability.AttrChatRequestParts, len(turn.Parts)),
	)
	return turn, contents, nil
}

// rollback removes the user turn recorded for a stream that produced no
// model turn.
func (s *Session) rollback(ctx context.Context, obs *sendObservation) {
	if _, err := s.memory.PopLastContent(ctx); err != nil {
		if obs.observer != nil {
			obs.observer.Error(ctx, "chat: rollback of user turn failed", observability.Error(err))
		}
		return
	}
	obs.event(observability.EventHistoryRollback)
}
