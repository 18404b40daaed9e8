package gemini

import (
	"context"

	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/observability"
)

// GenerateContentStream opens a streamGenerateContent request. Each SSE
// event carries one response fragment; decoding, validation and aggregation
// are done by [stream.Process]. The returned stream owns the response body.
func (p *GeminiProvider) GenerateContentStream(ctx context.Context, req *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error) {
	endpoint, err := p.prepare(ctx, "streamGenerateContent", req)
	if err != nil {
		return nil, err
	}
	endpoint += "?alt=sse"

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(observability.Bool(observability.AttrLLMStreaming, true))
	}

	httpResponse, err := utils.DoPostStream(ctx, p.client, endpoint, p.merge(req), p.authHeader())
	if err != nil {
		p.trace(ctx, "gemini stream request failed", observability.Error(err))
		return nil, err
	}
	return stream.Process(ctx, httpResponse.Body, cb), nil
}
