// Package gemini is the REST client for Google's Gemini generateContent API.
//
// [GeminiProvider] implements the chat session's model collaborator:
// buffered generation via generateContent, SSE streaming via
// streamGenerateContent?alt=sse (decoded by the core stream processor), and
// token counting via countTokens. Session-level request settings are merged
// over the provider's defaults field by field.
//
// The primary entry point is [New], which reads GEMINI_API_KEY,
// GEMINI_API_BASE_URL and GEMINI_MODEL from the environment. Use
// [GeminiProvider.WithAPIKey], [GeminiProvider.WithBaseURL],
// [GeminiProvider.WithHTTPClient], [GeminiProvider.WithModel] and
// [GeminiProvider.WithDefaults] to configure it programmatically. Token
// prices are exposed through [GetModelCost] and [EstimateCost].
package gemini
