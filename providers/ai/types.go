package ai

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

/*
	##### CONVERSATION #####
*/

// Role attributes a turn to one side of the conversation.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Content is one turn: a role and an ordered sequence of parts.
// SystemInstruction reuses it with an empty role.
type Content struct {
	Role  Role   `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a union; exactly one of Text, InlineData, FileData, FunctionCall or
// FunctionResponse is populated. Thought marks a text part carrying a
// reasoning summary.
type Part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FileData         *FileData         `json:"fileData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Blob is inline binary data. Data is base64 on the wire.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// FileData references previously uploaded content by URI.
type FileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

// FunctionCall is a model request to invoke a declared function.
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse carries the result of a FunctionCall back to the model.
type FunctionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

/*
	##### REQUEST #####
*/

// GenerateContentRequest is the body of generateContent,
// streamGenerateContent and countTokens.
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting   `json:"safetySettings,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	ToolConfig        *ToolConfig       `json:"toolConfig,omitempty"`
	CachedContent     string            `json:"cachedContent,omitempty"`
}

type GenerationConfig struct {
	CandidateCount     *int               `json:"candidateCount,omitempty"`
	StopSequences      []string           `json:"stopSequences,omitempty"`
	MaxOutputTokens    *int               `json:"maxOutputTokens,omitempty"`
	Temperature        *float64           `json:"temperature,omitempty"`
	TopP               *float64           `json:"topP,omitempty"`
	TopK               *int               `json:"topK,omitempty"`
	PresencePenalty    *float64           `json:"presencePenalty,omitempty"`
	FrequencyPenalty   *float64           `json:"frequencyPenalty,omitempty"`
	ResponseMIMEType   string             `json:"responseMimeType,omitempty"`
	ResponseSchema     *jsonschema.Schema `json:"responseJsonSchema,omitempty"`
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ThinkingConfig     *ThinkingConfig    `json:"thinkingConfig,omitempty"`
}

type ThinkingConfig struct {
	ThinkingBudget  *int `json:"thinkingBudget,omitempty"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

type HarmCategory string

const (
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

type HarmBlockThreshold string

const (
	BlockLowAndAbove    HarmBlockThreshold = "BLOCK_LOW_AND_ABOVE"
	BlockMediumAndAbove HarmBlockThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockOnlyHigh       HarmBlockThreshold = "BLOCK_ONLY_HIGH"
	BlockNone           HarmBlockThreshold = "BLOCK_NONE"
)

type SafetySetting struct {
	Category  HarmCategory       `json:"category"`
	Threshold HarmBlockThreshold `json:"threshold"`
}

// Tool groups function declarations. The server-side tools are enabled by
// a non-nil empty struct.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
	GoogleSearch         *struct{}             `json:"googleSearch,omitempty"`
	CodeExecution        *struct{}             `json:"codeExecution,omitempty"`
}

// FunctionDeclaration describes a callable function. Parameters is sent as a
// full JSON Schema.
type FunctionDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parametersJsonSchema,omitempty"`
}

type FunctionCallingMode string

const (
	FunctionCallingAuto FunctionCallingMode = "AUTO"
	FunctionCallingAny  FunctionCallingMode = "ANY"
	FunctionCallingNone FunctionCallingMode = "NONE"
)

type ToolConfig struct {
	FunctionCallingConfig *FunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

type FunctionCallingConfig struct {
	Mode                 FunctionCallingMode `json:"mode,omitempty"`
	AllowedFunctionNames []string            `json:"allowedFunctionNames,omitempty"`
}

/*
	##### RESPONSE #####
*/

// GenerateContentResponse is a complete response, one stream fragment, or
// the aggregate of a stream.
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

// GenerateContentResult is what a buffered send returns.
type GenerateContentResult struct {
	Response *GenerateContentResponse
}

type FinishReason string

const (
	FinishReasonUnspecified    FinishReason = "FINISH_REASON_UNSPECIFIED"
	FinishReasonStop           FinishReason = "STOP"
	FinishReasonMaxTokens      FinishReason = "MAX_TOKENS"
	FinishReasonSafety         FinishReason = "SAFETY"
	FinishReasonRecitation     FinishReason = "RECITATION"
	FinishReasonLanguage       FinishReason = "LANGUAGE"
	FinishReasonBlocklist      FinishReason = "BLOCKLIST"
	FinishReasonProhibited     FinishReason = "PROHIBITED_CONTENT"
	FinishReasonSPII           FinishReason = "SPII"
	FinishReasonMalformedCall  FinishReason = "MALFORMED_FUNCTION_CALL"
	FinishReasonOther          FinishReason = "OTHER"
	FinishReasonImageSafety    FinishReason = "IMAGE_SAFETY"
	FinishReasonUnexpectedTool FinishReason = "UNEXPECTED_TOOL_CALL"
)

// Blocked reports whether the reason means the candidate text was withheld.
func (r FinishReason) Blocked() bool {
	switch r {
	case FinishReasonSafety, FinishReasonRecitation, FinishReasonLanguage,
		FinishReasonBlocklist, FinishReasonProhibited, FinishReasonSPII, FinishReasonImageSafety:
		return true
	}
	return false
}

type Candidate struct {
	Index            int               `json:"index,omitempty"`
	Content          *Content          `json:"content,omitempty"`
	FinishReason     FinishReason      `json:"finishReason,omitempty"`
	FinishMessage    string            `json:"finishMessage,omitempty"`
	SafetyRatings    []SafetyRating    `json:"safetyRatings,omitempty"`
	CitationMetadata *CitationMetadata `json:"citationMetadata,omitempty"`
}

type SafetyRating struct {
	Category    HarmCategory `json:"category"`
	Probability string       `json:"probability"`
	Blocked     bool         `json:"blocked,omitempty"`
}

type CitationMetadata struct {
	CitationSources []CitationSource `json:"citationSources,omitempty"`
}

type CitationSource struct {
	StartIndex int    `json:"startIndex,omitempty"`
	EndIndex   int    `json:"endIndex,omitempty"`
	URI        string `json:"uri,omitempty"`
	License    string `json:"license,omitempty"`
}

type BlockReason string

const (
	BlockReasonUnspecified BlockReason = "BLOCK_REASON_UNSPECIFIED"
	BlockReasonSafety      BlockReason = "SAFETY"
	BlockReasonOther       BlockReason = "OTHER"
	BlockReasonBlocklist   BlockReason = "BLOCKLIST"
	BlockReasonProhibited  BlockReason = "PROHIBITED_CONTENT"
)

type PromptFeedback struct {
	BlockReason        BlockReason    `json:"blockReason,omitempty"`
	BlockReasonMessage string         `json:"blockReasonMessage,omitempty"`
	SafetyRatings      []SafetyRating `json:"safetyRatings,omitempty"`
}

type UsageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount    int `json:"candidatesTokenCount,omitempty"`
	ThoughtsTokenCount      int `json:"thoughtsTokenCount,omitempty"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
	TotalTokenCount         int `json:"totalTokenCount,omitempty"`
}

// CountTokensResponse is the body returned by countTokens.
type CountTokensResponse struct {
	TotalTokens             int `json:"totalTokens"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
}
