package gemini

import (
	"strings"

	"github.com/leofalp/genchat/providers/ai"
)

// Model name constants.
const (
	Model25Pro       = "gemini-2.5-pro"
	Model25Flash     = "gemini-2.5-flash"
	Model25FlashLite = "gemini-2.5-flash-lite"
	Model20Flash     = "gemini-2.0-flash"
	Model20FlashLite = "gemini-2.0-flash-lite"
)

// ModelCost is a model's price in USD per million tokens.
type ModelCost struct {
	InputCostPerMillion       float64
	OutputCostPerMillion      float64
	CachedInputCostPerMillion float64
	ThinkingCostPerMillion    float64
}

// ModelPricing holds standard-tier (≤200k context) prices.
// Source: https://ai.google.dev/gemini-api/docs/pricing
var ModelPricing = map[string]ModelCost{
	Model25Pro: {
		InputCostPerMillion:       1.25,
		OutputCostPerMillion:      10.00,
		CachedInputCostPerMillion: 0.31,
		ThinkingCostPerMillion:    10.00,
	},
	Model25Flash: {
		InputCostPerMillion:       0.30,
		OutputCostPerMillion:      2.50,
		CachedInputCostPerMillion: 0.075,
		ThinkingCostPerMillion:    2.50,
	},
	Model25FlashLite: {
		InputCostPerMillion:       0.10,
		OutputCostPerMillion:      0.40,
		CachedInputCostPerMillion: 0.025,
		ThinkingCostPerMillion:    0.40,
	},
	Model20Flash: {
		InputCostPerMillion:       0.10,
		OutputCostPerMillion:      0.40,
		CachedInputCostPerMillion: 0.025,
		ThinkingCostPerMillion:    0.40,
	},
	Model20FlashLite: {
		InputCostPerMillion:  0.075,
		OutputCostPerMillion: 0.30,
	},
}

// GetModelCost returns the price of model. Versioned names such as
// "gemini-2.0-flash-001" or "gemini-2.5-flash-preview-05-20" fall back to
// their base model.
func GetModelCost(model string) (ModelCost, bool) {
	model = strings.TrimPrefix(model, "models/")
	if mc, ok := ModelPricing[model]; ok {
		return mc, true
	}
	mc, ok := ModelPricing[normalizeModelName(model)]
	return mc, ok
}

// normalizeModelName strips version and release-channel suffixes.
func normalizeModelName(model string) string {
	for _, marker := range []string{"-preview", "-exp", "-latest", "-0"} {
		if i := strings.Index(model, marker); i > 0 {
			model = model[:i]
		}
	}
	return model
}

// EstimateCost prices usage for model in USD. Cached prompt tokens are
// billed at the cached rate and thinking tokens at the thinking rate. The
// second result is false for unknown models.
func EstimateCost(model string, usage *ai.UsageMetadata) (float64, bool) {
	mc, ok := GetModelCost(model)
	if !ok || usage == nil {
		return 0, ok
	}
	uncached := max(usage.PromptTokenCount-usage.CachedContentTokenCount, 0)
	total := float64(uncached)*mc.InputCostPerMillion +
		float64(usage.CachedContentTokenCount)*mc.CachedInputCostPerMillion +
		float64(usage.CandidatesTokenCount)*mc.OutputCostPerMillion +
		float64(usage.ThoughtsTokenCount)*mc.ThinkingCostPerMillion
	return total / 1_000_000, true
}
