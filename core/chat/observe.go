package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/observability"
)

// sendObservation tracks one send. All methods are no-ops when the session
// has no observer.
type sendObservation struct {
	observer  observability.Provider
	span      observability.Span
	name      string
	sessionID string
	start     time.Time
}

// observe opens the span for one send and returns a context carrying both
// the span and the observer, so the model and the memory store can attach
// events to it.
func (s *Session) observe(ctx context.Context, spanName string) (context.Context, *sendObservation) {
	obs := &sendObservation{name: spanName, sessionID: s.id, start: time.Now()}
	if s.observer == nil {
		return ctx, obs
	}
	obs.observer = s.observer
	ctx, obs.span = s.observer.StartSpan(ctx, spanName,
		observability.String(observability.AttrChatSessionID, s.id),
		observability.Bool(observability.AttrLLMStreaming, spanName == observability.SpanChatSendMessageStream),
	)
	ctx = observability.ContextWithSpan(ctx, obs.span)
	ctx = observability.ContextWithObserver(ctx, s.observer)
	return ctx, obs
}

func (o *sendObservation) event(name string, attrs ...observability.Attribute) {
	if o.span != nil {
		o.span.AddEvent(name, attrs...)
	}
}

func (o *sendObservation) setAttributes(attrs ...observability.Attribute) {
	if o.span != nil {
		o.span.SetAttributes(attrs...)
	}
}

// end closes the span and records the outcome of the send.
func (o *sendObservation) end(ctx context.Context, resp *ai.GenerateContentResponse, err error) {
	if o.observer == nil {
		return
	}
	elapsed := time.Since(o.start)
	base := []observability.Attribute{
		observability.String(observability.AttrChatSessionID, o.sessionID),
	}

	if err != nil {
		errAttrs := []observability.Attribute{observability.String(observability.AttrErrorType, fmt.Sprintf("%T", err))}
		var blocked *ai.BlockedError
		if errors.As(err, &blocked) {
			reason := string(blocked.BlockReason)
			if reason == "" {
				reason = string(blocked.FinishReason)
			}
			errAttrs = append(errAttrs, observability.String(observability.AttrLLMBlockReason, reason))
		}
		o.span.SetAttributes(errAttrs...)
		o.span.RecordError(err)
		o.span.SetStatus(observability.StatusError, o.name+" failed")
		o.span.End()

		o.observer.Counter(observability.MetricChatSendErrors).Add(ctx, 1, base...)
		o.observer.Counter(observability.MetricChatSends).Add(ctx, 1,
			append(base, observability.String(observability.AttrStatus, "error"))...)
		o.observer.Error(ctx, o.name+" failed",
			append(base, observability.Error(err), observability.Duration(observability.AttrDuration, elapsed))...)
		return
	}

	attrs := append(base, observability.Duration(observability.AttrDuration, elapsed))
	if resp != nil {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			attrs = append(attrs, observability.String(observability.AttrLLMFinishReason, string(resp.Candidates[0].FinishReason)))
		}
		if resp.ModelVersion != "" {
			attrs = append(attrs, observability.String(observability.AttrLLMModel, resp.ModelVersion))
		}
		if usage := resp.UsageMetadata; usage != nil {
			attrs = append(attrs,
				observability.Int(observability.AttrLLMTokensPrompt, usage.PromptTokenCount),
				observability.Int(observability.AttrLLMTokensCompletion, usage.CandidatesTokenCount),
				observability.Int(observability.AttrLLMTokensTotal, usage.TotalTokenCount),
			)
			o.observer.Histogram(observability.MetricChatTokensPrompt).Record(ctx, float64(usage.PromptTokenCount), base...)
			o.observer.Histogram(observability.MetricChatTokensResponse).Record(ctx, float64(usage.CandidatesTokenCount), base...)
		}
		if text, textErr := resp.Text(); textErr == nil && text != "" {
			o.observer.Trace(ctx, o.name+" response",
				append(base, observability.String(observability.AttrChatResponseText, utils.TruncateString(text, utils.DefaultMaxStringLength)))...)
		}
	}

	o.span.SetAttributes(attrs...)
	o.span.SetStatus(observability.StatusOK, "")
	o.span.End()

	o.observer.Counter(observability.MetricChatSends).Add(ctx, 1,
		append(base, observability.String(observability.AttrStatus, "ok"))...)
	o.observer.Histogram(observability.MetricChatSendDuration).Record(ctx, elapsed.Seconds(), base...)
	o.observer.Info(ctx, o.name+" completed", attrs...)
}
