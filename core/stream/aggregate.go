package stream

import (
	"fmt"

	"github.com/leofalp/genchat/providers/ai"
)

// Aggregator folds stream fragments into one response.
//
// Candidates are merged by position. Within a candidate a plain-text part is
// concatenated onto a preceding plain-text part; every other part is
// appended as is. Finish reason, finish message, safety ratings and
// citations come from the last fragment that supplied them, as do usage,
// prompt feedback and model version. Fragments are copied, never mutated.
//
// The first malformed fragment poisons the aggregator: the partial result is
// dropped and every later call returns the same error.
type Aggregator struct {
	resp  *ai.GenerateContentResponse
	count int
	err   error
}

// Add merges one fragment.
func (a *Aggregator) Add(fragment *ai.GenerateContentResponse) error {
	if a.err != nil {
		return a.err
	}
	if fragment == nil {
		return a.fail(fmt.Errorf("%w: fragment %d is empty", ai.ErrMalformedChunk, a.count))
	}
	for i, c := range fragment.Candidates {
		if c.Content == nil && c.FinishReason == "" && len(c.SafetyRatings) == 0 && c.CitationMetadata == nil {
			return a.fail(fmt.Errorf("%w: fragment %d: candidate %d carries no data", ai.ErrMalformedChunk, a.count, i))
		}
	}

	if a.resp == nil {
		a.resp = &ai.GenerateContentResponse{}
	}
	for i, c := range fragment.Candidates {
		if i == len(a.resp.Candidates) {
			a.resp.Candidates = append(a.resp.Candidates, ai.Candidate{Index: c.Index})
		}
		mergeCandidate(&a.resp.Candidates[i], c)
	}
	if fragment.UsageMetadata != nil {
		usage := *fragment.UsageMetadata
		a.resp.UsageMetadata = &usage
	}
	if fragment.PromptFeedback != nil {
		feedback := *fragment.PromptFeedback
		feedback.SafetyRatings = append([]ai.SafetyRating(nil), fragment.PromptFeedback.SafetyRatings...)
		a.resp.PromptFeedback = &feedback
	}
	if fragment.ModelVersion != "" {
		a.resp.ModelVersion = fragment.ModelVersion
	}
	a.count++
	return nil
}

// Count is the number of fragments merged so far.
func (a *Aggregator) Count() int {
	return a.count
}

// Result returns the merged response. It fails with ai.ErrEmptyStream when
// nothing was added, or with the error that poisoned the aggregator.
func (a *Aggregator) Result() (*ai.GenerateContentResponse, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.count == 0 {
		return nil, ai.ErrEmptyStream
	}
	return a.resp, nil
}

func (a *Aggregator) fail(err error) error {
	a.err = err
	a.resp = nil
	return err
}

func mergeCandidate(dst *ai.Candidate, src ai.Candidate) {
	if src.Content != nil {
		if dst.Content == nil {
			dst.Content = &ai.Content{}
		}
		if src.Content.Role != "" {
			dst.Content.Role = src.Content.Role
		}
		for _, part := range src.Content.Parts {
			parts := dst.Content.Parts
			if n := len(parts); n > 0 && part.IsPlainText() && parts[n-1].IsPlainText() {
				parts[n-1].Text += part.Text
				continue
			}
			dst.Content.Parts = append(parts, part.Clone())
		}
	}
	if src.FinishReason != "" {
		dst.FinishReason = src.FinishReason
	}
	if src.FinishMessage != "" {
		dst.FinishMessage = src.FinishMessage
	}
	if len(src.SafetyRatings) > 0 {
		dst.SafetyRatings = append([]ai.SafetyRating(nil), src.SafetyRatings...)
	}
	if src.CitationMetadata != nil {
		citations := ai.CitationMetadata{
			CitationSources: append([]ai.CitationSource(nil), src.CitationMetadata.CitationSources...),
		}
		dst.CitationMetadata = &citations
	}
}

// Aggregate merges a complete fragment sequence.
func Aggregate(fragments []*ai.GenerateContentResponse) (*ai.GenerateContentResponse, error) {
	var agg Aggregator
	for _, fragment := range fragments {
		if err := agg.Add(fragment); err != nil {
			return nil, err
		}
	}
	return agg.Result()
}
