package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidHistory reports a turn sequence that breaks user/model
	// alternation or carries parts not allowed for its role. Nothing is sent.
	ErrInvalidHistory = errors.New("invalid history")

	// ErrBlockedPrompt reports that the service refused the prompt itself.
	ErrBlockedPrompt = errors.New("prompt blocked")

	// ErrBlockedResponse reports a response without a usable first candidate.
	ErrBlockedResponse = errors.New("response blocked")

	// ErrMalformedChunk reports a stream record that is not a response shell.
	ErrMalformedChunk = errors.New("malformed stream chunk")

	// ErrEmptyStream reports a stream that ended without any fragment.
	ErrEmptyStream = errors.New("empty stream")

	// ErrStreamClosed is the terminal error of a stream abandoned by its
	// consumer before the end of input.
	ErrStreamClosed = errors.New("stream closed before completion")
)

// BlockedError describes a refusal. Kind is ErrBlockedPrompt or
// ErrBlockedResponse and is what errors.Is matches against.
type BlockedError struct {
	Kind         error
	BlockReason  BlockReason
	FinishReason FinishReason
	Message      string
	Response     *GenerateContentResponse
}

func (e *BlockedError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	switch {
	case e.BlockReason != "":
		fmt.Fprintf(&sb, " due to %s", e.BlockReason)
	case e.FinishReason != "":
		fmt.Fprintf(&sb, ": candidate finished with %s", e.FinishReason)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func (e *BlockedError) Is(target error) bool {
	return target == e.Kind
}

// HistoryError pinpoints the turn that failed validation.
type HistoryError struct {
	Index  int
	Reason string
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("%s: turn %d: %s", ErrInvalidHistory, e.Index, e.Reason)
}

func (e *HistoryError) Unwrap() error {
	return ErrInvalidHistory
}

// BlockedPromptError builds the error for a response whose prompt feedback
// carries a block reason, or nil when the prompt was not blocked.
func BlockedPromptError(resp *GenerateContentResponse) error {
	if resp == nil || resp.PromptFeedback == nil || resp.PromptFeedback.BlockReason == "" {
		return nil
	}
	return &BlockedError{
		Kind:        ErrBlockedPrompt,
		BlockReason: resp.PromptFeedback.BlockReason,
		Message:     resp.PromptFeedback.BlockReasonMessage,
		Response:    resp,
	}
}
