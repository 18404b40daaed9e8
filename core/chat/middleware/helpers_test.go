package middleware

import (
	"context"
	"io"
	"strings"

	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/providers/ai"
)

func okResult(text string) *ai.GenerateContentResult {
	return &ai.GenerateContentResult{Response: &ai.GenerateContentResponse{
		Candidates: []ai.Candidate{{
			Content:      &ai.Content{Role: ai.RoleModel, Parts: []ai.Part{{Text: text}}},
			FinishReason: ai.FinishReasonStop,
		}},
		UsageMetadata: &ai.UsageMetadata{PromptTokenCount: 3, CandidatesTokenCount: 2, TotalTokenCount: 5},
	}}
}

func userRequest(text string) *ai.GenerateContentRequest {
	return &ai.GenerateContentRequest{Contents: []ai.Content{{Role: ai.RoleUser, Parts: []ai.Part{{Text: text}}}}}
}

// sequence returns each configured outcome in turn, then succeeds.
type sequence struct {
	errs  []error
	calls int
}

func (s *sequence) generate(_ context.Context, _ *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return okResult("ok"), nil
}

func (s *sequence) stream(ctx context.Context, _ *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	body := io.NopCloser(strings.NewReader(`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]},"finishReason":"STOP"}]}` + "\n\n"))
	return stream.Process(ctx, body, cb), nil
}
