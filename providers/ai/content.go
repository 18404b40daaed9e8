package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidContent reports a message that cannot be turned into a user turn.
var ErrInvalidContent = errors.New("invalid message content")

func NewTextPart(text string) Part {
	return Part{Text: text}
}

func NewBlobPart(mimeType string, data []byte) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

func NewFileDataPart(mimeType, uri string) Part {
	return Part{FileData: &FileData{MIMEType: mimeType, FileURI: uri}}
}

// NewFunctionResponsePart marshals response as the payload of a function
// result addressed to name.
func NewFunctionResponsePart(name string, response any) (Part, error) {
	payload, err := json.Marshal(response)
	if err != nil {
		return Part{}, fmt.Errorf("marshal function response %q: %w", name, err)
	}
	return Part{FunctionResponse: &FunctionResponse{Name: name, Response: payload}}, nil
}

// variants counts the populated union members.
func (p Part) variants() int {
	n := 0
	if p.Text != "" {
		n++
	}
	for _, set := range []bool{p.InlineData != nil, p.FileData != nil, p.FunctionCall != nil, p.FunctionResponse != nil} {
		if set {
			n++
		}
	}
	return n
}

// Validate fails unless exactly one variant is populated.
func (p Part) Validate() error {
	switch n := p.variants(); {
	case n == 0:
		return fmt.Errorf("%w: part has no data", ErrInvalidContent)
	case n > 1:
		return fmt.Errorf("%w: part has %d variants set", ErrInvalidContent, n)
	case p.Thought && p.Text == "":
		return fmt.Errorf("%w: thought flag on a non-text part", ErrInvalidContent)
	}
	return nil
}

// IsPlainText reports whether p is a non-thought text part. A part with no
// variant at all counts as empty text, which is how streams sometimes
// terminate a candidate.
func (p Part) IsPlainText() bool {
	return !p.Thought && p.InlineData == nil && p.FileData == nil &&
		p.FunctionCall == nil && p.FunctionResponse == nil
}

// Clone returns a deep copy of p.
func (p Part) Clone() Part {
	out := p
	if p.InlineData != nil {
		blob := *p.InlineData
		blob.Data = bytes.Clone(p.InlineData.Data)
		out.InlineData = &blob
	}
	if p.FileData != nil {
		fd := *p.FileData
		out.FileData = &fd
	}
	if p.FunctionCall != nil {
		call := *p.FunctionCall
		call.Args = bytes.Clone(p.FunctionCall.Args)
		out.FunctionCall = &call
	}
	if p.FunctionResponse != nil {
		resp := *p.FunctionResponse
		resp.Response = bytes.Clone(p.FunctionResponse.Response)
		out.FunctionResponse = &resp
	}
	return out
}

// Clone returns a deep copy of c.
func (c Content) Clone() Content {
	out := Content{Role: c.Role}
	if c.Parts != nil {
		out.Parts = make([]Part, len(c.Parts))
		for i, part := range c.Parts {
			out.Parts[i] = part.Clone()
		}
	}
	return out
}

// CloneContents deep-copies a turn sequence. A nil input stays nil.
func CloneContents(contents []Content) []Content {
	if contents == nil {
		return nil
	}
	out := make([]Content, len(contents))
	for i, c := range contents {
		out[i] = c.Clone()
	}
	return out
}

// NewUserContent normalizes a chat message into a user turn. Each element of
// message may be a string, a Part, a *Part, a []Part, a []string or a Content
// with the user role (or no role). Function responses cannot be mixed with
// other parts in one turn.
func NewUserContent(message ...any) (Content, error) {
	var parts []Part
	for i, item := range message {
		switch v := item.(type) {
		case string:
			parts = append(parts, NewTextPart(v))
		case []string:
			for _, s := range v {
				parts = append(parts, NewTextPart(s))
			}
		case Part:
			parts = append(parts, v.Clone())
		case *Part:
			if v == nil {
				return Content{}, fmt.Errorf("%w: element %d is a nil part", ErrInvalidContent, i)
			}
			parts = append(parts, v.Clone())
		case []Part:
			for _, p := range v {
				parts = append(parts, p.Clone())
			}
		case Content:
			if v.Role != "" && v.Role != RoleUser {
				return Content{}, fmt.Errorf("%w: element %d has role %q", ErrInvalidContent, i, v.Role)
			}
			parts = append(parts, v.Clone().Parts...)
		default:
			return Content{}, fmt.Errorf("%w: unsupported element %d of type %T", ErrInvalidContent, i, item)
		}
	}

	if len(parts) == 0 {
		return Content{}, fmt.Errorf("%w: message has no parts", ErrInvalidContent)
	}
	for i, p := range parts {
		if err := p.Validate(); err != nil {
			return Content{}, fmt.Errorf("part %d: %w", i, err)
		}
	}

	responses := 0
	for _, p := range parts {
		if p.FunctionResponse != nil {
			responses++
		}
	}
	if responses > 0 && responses != len(parts) {
		return Content{}, fmt.Errorf("%w: function responses cannot be mixed with other parts in one message", ErrInvalidContent)
	}

	return Content{Role: RoleUser, Parts: slices.Clip(parts)}, nil
}
