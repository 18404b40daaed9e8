package ai

import "fmt"

// ValidateHistory checks that turns strictly alternate between user and
// model starting with user, that no turn is empty, and that every part is a
// valid union allowed for its role: function calls only from the model,
// function responses only from the user.
func ValidateHistory(history []Content) error {
	for i, turn := range history {
		want := RoleUser
		if i%2 == 1 {
			want = RoleModel
		}
		if turn.Role != want {
			return &HistoryError{Index: i, Reason: fmt.Sprintf("expected role %q, got %q", want, turn.Role)}
		}
		if len(turn.Parts) == 0 {
			return &HistoryError{Index: i, Reason: "turn has no parts"}
		}
		for j, part := range turn.Parts {
			if err := part.Validate(); err != nil {
				return &HistoryError{Index: i, Reason: fmt.Sprintf("part %d: %v", j, err)}
			}
			switch {
			case turn.Role == RoleUser && part.FunctionCall != nil:
				return &HistoryError{Index: i, Reason: fmt.Sprintf("part %d: function call in a user turn", j)}
			case turn.Role == RoleModel && part.FunctionResponse != nil:
				return &HistoryError{Index: i, Reason: fmt.Sprintf("part %d: function response in a model turn", j)}
			}
		}
	}
	return nil
}

// IsValidResponse reports whether resp can be recorded as a model turn: the
// prompt was not blocked and the first candidate has content whose parts are
// all valid.
func IsValidResponse(resp *GenerateContentResponse) bool {
	return ResponseError(resp) == nil
}

// ResponseError explains why resp fails IsValidResponse, or returns nil.
// The error matches ErrBlockedResponse.
func ResponseError(resp *GenerateContentResponse) error {
	if resp == nil {
		return &BlockedError{Kind: ErrBlockedResponse, Message: "no response"}
	}
	blocked := &BlockedError{Kind: ErrBlockedResponse, Response: resp}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		blocked.BlockReason = fb.BlockReason
		blocked.Message = fb.BlockReasonMessage
		return blocked
	}
	if len(resp.Candidates) == 0 {
		blocked.Message = "no candidates returned"
		return blocked
	}
	first := resp.Candidates[0]
	blocked.FinishReason = first.FinishReason
	blocked.Message = first.FinishMessage
	if first.Content == nil || len(first.Content.Parts) == 0 {
		if blocked.Message == "" {
			blocked.Message = "first candidate has no content"
		}
		return blocked
	}
	for i, part := range first.Content.Parts {
		if err := part.Validate(); err != nil {
			blocked.Message = fmt.Sprintf("part %d: %v", i, err)
			return blocked
		}
	}
	return nil
}

// ModelTurn returns a copy of the first candidate's content as a model turn.
// The second result is false when there is nothing to record.
func ModelTurn(resp *GenerateContentResponse) (Content, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Content{}, false
	}
	turn := resp.Candidates[0].Content.Clone()
	turn.Role = RoleModel
	return turn, true
}
