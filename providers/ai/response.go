package ai

import "strings"

func (r *GenerateContentResponse) blockedError() error {
	if r == nil {
		return nil
	}
	if len(r.Candidates) == 0 {
		return BlockedPromptError(r)
	}
	first := r.Candidates[0]
	if first.FinishReason.Blocked() {
		return &BlockedError{
			Kind:         ErrBlockedResponse,
			FinishReason: first.FinishReason,
			Message:      first.FinishMessage,
			Response:     r,
		}
	}
	return nil
}

// Text concatenates the non-thought text parts of the first candidate. It
// fails with a *BlockedError when the prompt or the candidate was blocked.
func (r *GenerateContentResponse) Text() (string, error) {
	if err := r.blockedError(); err != nil {
		return "", err
	}
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		if part.IsPlainText() {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// FunctionCalls lists the function calls of the first candidate, with the
// same blocking rules as Text.
func (r *GenerateContentResponse) FunctionCalls() ([]FunctionCall, error) {
	if err := r.blockedError(); err != nil {
		return nil, err
	}
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return nil, nil
	}
	var calls []FunctionCall
	for _, part := range r.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
	}
	return calls, nil
}
