package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/genchat/core/chat"
	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per call.
type LogLevel int

const (
	// LogLevelMinimal logs duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the content count and finish reason.
	LogLevelStandard

	// LogLevelVerbose adds the last user text and the response text, each
	// truncated to 500 characters.
	//
	// WARNING: do not use LogLevelVerbose in production. It logs raw prompt
	// and response text.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware emits structured entries before and after every model
// call. For streams the completion entry is written when the stream reaches
// a terminal state. logger must not be nil.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) chat.MiddlewareConfig {
	return chat.MiddlewareConfig{
		Generate: func(next chat.GenerateFunc) chat.GenerateFunc {
			return func(ctx context.Context, req *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
				logger.InfoContext(ctx, "llm send", requestAttrs(req, level)...)

				start := time.Now()
				result, err := next(ctx, req)
				elapsed := time.Since(start)
				if err != nil {
					logger.ErrorContext(ctx, "llm send failed",
						slog.Duration("duration", elapsed),
						slog.String("error", err.Error()),
					)
					return nil, err
				}

				var resp *ai.GenerateContentResponse
				if result != nil {
					resp = result.Response
				}
				logger.InfoContext(ctx, "llm send completed", responseAttrs(resp, elapsed, level)...)
				return result, nil
			}
		},
		Stream: func(next chat.StreamFunc) chat.StreamFunc {
			return func(ctx context.Context, req *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error) {
				logger.InfoContext(ctx, "llm stream", requestAttrs(req, level)...)

				start := time.Now()
				result, err := next(ctx, req, cb)
				if err != nil {
					logger.ErrorContext(ctx, "llm stream failed",
						slog.Duration("duration", time.Since(start)),
						slog.String("error", err.Error()),
					)
					return nil, err
				}

				logCtx := context.WithoutCancel(ctx)
				result.OnFinish(func(resp *ai.GenerateContentResponse, err error) {
					elapsed := time.Since(start)
					if err != nil {
						logger.ErrorContext(logCtx, "llm stream failed",
							slog.Duration("duration", elapsed),
							slog.String("error", err.Error()),
						)
						return
					}
					logger.InfoContext(logCtx, "llm stream completed", responseAttrs(resp, elapsed, level)...)
				})
				return result, nil
			}
		},
	}
}

func requestAttrs(req *ai.GenerateContentRequest, level LogLevel) []any {
	var attrs []any
	if req == nil {
		return attrs
	}
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("content_count", len(req.Contents)))
	}
	if level >= LogLevelVerbose && len(req.Contents) > 0 {
		last := req.Contents[len(req.Contents)-1]
		attrs = append(attrs,
			slog.String("last_content_role", string(last.Role)),
			slog.String("last_content_text", utils.TruncateString(contentText(last), truncateLen)),
		)
	}
	return attrs
}

func responseAttrs(resp *ai.GenerateContentResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{slog.Duration("duration", elapsed)}
	if resp == nil {
		return attrs
	}
	if resp.ModelVersion != "" {
		attrs = append(attrs, slog.String("model", resp.ModelVersion))
	}
	if usage := resp.UsageMetadata; usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", usage.PromptTokenCount),
			slog.Int("completion_tokens", usage.CandidatesTokenCount),
			slog.Int("total_tokens", usage.TotalTokenCount),
		)
	}
	if level >= LogLevelStandard && len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", string(resp.Candidates[0].FinishReason)))
	}
	if level >= LogLevelVerbose {
		if text, err := resp.Text(); err == nil && text != "" {
			attrs = append(attrs, slog.String("response_text", utils.TruncateString(text, truncateLen)))
		}
	}
	return attrs
}

// contentText joins the non-thought text parts of c.
func contentText(c ai.Content) string {
	var text string
	for _, p := range c.Parts {
		if p.Text != "" && !p.Thought {
			text += p.Text
		}
	}
	return text
}
