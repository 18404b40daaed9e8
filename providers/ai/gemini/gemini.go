package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/leofalp/genchat/internal/utils"
	"github.com/leofalp/genchat/providers/ai"
	"github.com/leofalp/genchat/providers/observability"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = Model25Flash
	apiKeyHeader   = "x-goog-api-key" // #nosec G101 -- header name, not a credential
)

// ErrMissingAPIKey is returned by every call when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: GEMINI_API_KEY is not set")

// Defaults are request settings applied when a request leaves the field unset.
type Defaults struct {
	SystemInstruction *ai.Content
	GenerationConfig  *ai.GenerationConfig
	SafetySettings    []ai.SafetySetting
	Tools             []ai.Tool
	ToolConfig        *ai.ToolConfig
}

// GeminiProvider talks to one Gemini model.
type GeminiProvider struct {
	apiKey   string
	baseURL  string
	model    string
	client   *http.Client
	defaults Defaults
}

// New creates a provider from the environment:
//   - GEMINI_API_KEY: API key
//   - GEMINI_API_BASE_URL: base URL (optional, defaults to Google's API)
//   - GEMINI_MODEL: model name (optional)
func New() *GeminiProvider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &GeminiProvider{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key.
func (p *GeminiProvider) WithAPIKey(apiKey string) *GeminiProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the API base URL.
func (p *GeminiProvider) WithBaseURL(baseURL string) *GeminiProvider {
	p.baseURL = baseURL
	return p
}

// WithHTTPClient sets a custom HTTP client.
func (p *GeminiProvider) WithHTTPClient(client *http.Client) *GeminiProvider {
	p.client = client
	return p
}

// WithModel selects the model, e.g. [Model25FlashLite].
func (p *GeminiProvider) WithModel(model string) *GeminiProvider {
	p.model = model
	return p
}

// WithDefaults sets request defaults.
func (p *GeminiProvider) WithDefaults(defaults Defaults) *GeminiProvider {
	p.defaults = defaults
	return p
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string {
	return p.model
}

// GenerateContent sends a buffered generateContent request.
func (p *GeminiProvider) GenerateContent(ctx context.Context, req *ai.GenerateContentRequest) (*ai.GenerateContentResult, error) {
	endpoint, err := p.prepare(ctx, "generateContent", req)
	if err != nil {
		return nil, err
	}

	httpResponse, resp, err := utils.DoPostSync[ai.GenerateContentResponse](ctx, p.client, endpoint, p.merge(req), p.authHeader())
	if err != nil {
		p.trace(ctx, "gemini request failed", observability.Error(err))
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini: empty response: %s", httpResponse.Status)
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(observability.Int(observability.AttrHTTPStatusCode, httpResponse.StatusCode))
		if resp.UsageMetadata != nil {
			span.SetAttributes(observability.Int(observability.AttrLLMTokensTotal, resp.UsageMetadata.TotalTokenCount))
		}
	}
	return &ai.GenerateContentResult{Response: resp}, nil
}

// CountTokens reports the token count of req's contents and settings.
func (p *GeminiProvider) CountTokens(ctx context.Context, req *ai.GenerateContentRequest) (*ai.CountTokensResponse, error) {
	endpoint, err := p.prepare(ctx, "countTokens", req)
	if err != nil {
		return nil, err
	}

	merged := p.merge(req)
	merged.Model = "models/" + p.model
	body := countTokensRequest{GenerateContentRequest: merged}
	_, resp, err := utils.DoPostSync[ai.CountTokensResponse](ctx, p.client, endpoint, body, p.authHeader())
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type countTokensRequest struct {
	GenerateContentRequest *mergedRequest `json:"generateContentRequest"`
}

// mergedRequest is the wire body of generateContent. countTokens nests it
// and additionally needs the model name inside.
type mergedRequest struct {
	Model string `json:"model,omitempty"`
	*ai.GenerateContentRequest
}

// merge overlays req on the provider defaults, field by field.
func (p *GeminiProvider) merge(req *ai.GenerateContentRequest) *mergedRequest {
	out := *req
	if out.SystemInstruction == nil {
		out.SystemInstruction = p.defaults.SystemInstruction
	}
	if out.GenerationConfig == nil {
		out.GenerationConfig = p.defaults.GenerationConfig
	}
	if out.SafetySettings == nil {
		out.SafetySettings = p.defaults.SafetySettings
	}
	if out.Tools == nil {
		out.Tools = p.defaults.Tools
	}
	if out.ToolConfig == nil {
		out.ToolConfig = p.defaults.ToolConfig
	}
	return &mergedRequest{GenerateContentRequest: &out}
}

// prepare validates the call and returns the endpoint URL for method.
func (p *GeminiProvider) prepare(ctx context.Context, method string, req *ai.GenerateContentRequest) (string, error) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, providerName),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, p.model),
		)
	}
	if req == nil {
		return "", errors.New("gemini: nil request")
	}
	p.trace(ctx, "gemini preparing "+method,
		observability.String(observability.AttrLLMModel, p.model),
		observability.Int(observability.AttrChatHistoryLength, len(req.Contents)),
	)
	if p.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	return fmt.Sprintf("%s/models/%s:%s", p.baseURL, url.PathEscape(p.model), method), nil
}

func (p *GeminiProvider) authHeader() utils.HeaderOption {
	return utils.HeaderOption{Key: apiKeyHeader, Value: p.apiKey}
}

func (p *GeminiProvider) trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, msg, attrs...)
	}
}
