package chat

import (
	"context"
	"slices"

	"github.com/leofalp/genchat/core/stream"
	"github.com/leofalp/genchat/providers/ai"
)

// Model is the generative service a Session talks to.
type Model interface {
	// GenerateContent returns the buffered response for req.
	GenerateContent(ctx context.Context, req *ai.GenerateContentRequest) (*ai.GenerateContentResult, error)

	// GenerateContentStream opens a stream for req. cb is handed to the
	// stream processor unchanged.
	GenerateContentStream(ctx context.Context, req *ai.GenerateContentRequest, cb stream.Callbacks) (*stream.Result, error)
}

// TokenCounter is implemented by models that can count request tokens.
type TokenCounter interface {
	CountTokens(ctx context.Context, req *ai.GenerateContentRequest) (*ai.CountTokensResponse, error)
}

// Params are the per-session request settings. Unset fields fall back to
// whatever defaults the model applies.
type Params struct {
	// History seeds the transcript. It must alternate user/model starting
	// with user.
	History []ai.Content

	SystemInstruction *ai.Content
	GenerationConfig  *ai.GenerationConfig
	SafetySettings    []ai.SafetySetting
	Tools             []ai.Tool
	ToolConfig        *ai.ToolConfig
	CachedContent     string
}

// request builds a request over contents. The session-level settings are
// shared, the contents slice is not.
func (p Params) request(contents []ai.Content) *ai.GenerateContentRequest {
	return &ai.GenerateContentRequest{
		Contents:          slices.Clone(contents),
		SystemInstruction: p.SystemInstruction,
		GenerationConfig:  p.GenerationConfig,
		SafetySettings:    p.SafetySettings,
		Tools:             p.Tools,
		ToolConfig:        p.ToolConfig,
		CachedContent:     p.CachedContent,
	}
}
