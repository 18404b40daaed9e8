// Package ai holds the generative-content data model shared by the chat
// session, the stream processor and the model providers.
//
// The types follow the Gemini REST wire format, so a [GenerateContentRequest]
// can be marshalled as-is and a [GenerateContentResponse] decoded straight
// from a response body or a single stream record. A conversation is a slice
// of [Content] turns alternating between [RoleUser] and [RoleModel]; each turn
// holds [Part] values of which exactly one variant is set.
//
// The package also defines the error taxonomy ([ErrInvalidHistory],
// [ErrBlockedPrompt], [ErrBlockedResponse], [ErrMalformedChunk],
// [ErrEmptyStream]) and the validation predicates built on it.
package ai
