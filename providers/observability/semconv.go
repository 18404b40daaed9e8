package observability

// Attribute keys, span names, event names and metric names shared by every
// genchat component.

// --- LLM ---

const (
	AttrLLMProvider     = "llm.provider"
	AttrLLMModel        = "llm.model"
	AttrLLMEndpoint     = "llm.endpoint"
	AttrLLMFinishReason = "llm.finish_reason"
	AttrLLMBlockReason  = "llm.block_reason"
	AttrLLMStreaming    = "llm.streaming"

	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- token counts, not credentials
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- token counts, not credentials
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101 -- token counts, not credentials
)

// --- Chat session ---

const (
	// AttrChatSessionID identifies the session a send belongs to.
	AttrChatSessionID = "chat.session_id"

	// AttrChatHistoryLength is the number of turns recorded before the send.
	AttrChatHistoryLength = "chat.history.length"

	// AttrChatRequestParts is the number of parts in the outgoing user turn.
	AttrChatRequestParts = "chat.request.parts"

	// AttrChatGateWait is how long the send waited for the previous one.
	AttrChatGateWait = "chat.gate.wait"

	// AttrChatResponseText is the (truncated) aggregated model text.
	AttrChatResponseText = "chat.response.text"

	// AttrChatAttempt is the 1-based attempt number inside retry middleware.
	AttrChatAttempt = "chat.attempt"
)

// --- Stream ---

const (
	AttrStreamChunks     = "stream.chunks"
	AttrStreamCandidates = "stream.candidates"
)

// --- HTTP ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
	AttrHTTPDuration         = "http.duration"
)

// --- Memory ---

const (
	AttrMemoryBackend       = "memory.backend"
	AttrMemoryRole          = "memory.content.role"
	AttrMemoryParts         = "memory.content.parts"
	AttrMemoryTotalContents = "memory.total_contents"
)

// --- Tools ---

const (
	AttrToolName     = "tool.name"
	AttrToolInput    = "tool.input"
	AttrToolOutput   = "tool.output"
	AttrToolError    = "tool.error"
	AttrToolDuration = "tool.duration"
)

// --- General ---

const (
	AttrError             = "error"
	AttrErrorType         = "error.type"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span names ---

const (
	SpanChatSendMessage       = "chat.send_message"
	SpanChatSendMessageStream = "chat.send_message_stream"
	SpanLLMCountTokens        = "llm.count_tokens" // #nosec G101 -- token counts, not credentials
)

// --- Event names ---

const (
	EventGateAcquired     = "chat.gate.acquired"
	EventGateReleased     = "chat.gate.released"
	EventHistoryCommitted = "chat.history.committed"
	EventHistoryRollback  = "chat.history.rollback"

	EventStreamChunk    = "stream.chunk"
	EventStreamComplete = "stream.complete"

	EventMemoryAppend = "memory.append"
	EventMemoryPop    = "memory.pop"
	EventMemoryClear  = "memory.clear"

	EventRetryAttempt = "retry.attempt"

	EventToolExecutionStart = "tool.execution.start"
	EventToolExecutionEnd   = "tool.execution.end"
)

// --- Metric names ---

const (
	MetricChatSends          = "genchat.chat.sends"
	MetricChatSendErrors     = "genchat.chat.send_errors"
	MetricChatSendDuration   = "genchat.chat.send.duration"
	MetricChatTokensPrompt   = "genchat.chat.tokens.prompt"     // #nosec G101 -- token counts, not credentials
	MetricChatTokensResponse = "genchat.chat.tokens.completion" // #nosec G101 -- token counts, not credentials
	MetricStreamChunks       = "genchat.stream.chunks"
)
