// Package pricing maps (provider, model, token counts) to USD cost.
// Calculate is deterministic and side-effect-free so orchestration code can
// account for spend without touching the network.
package pricing

import (
	"math"
	"strings"
)

const (
	tokensPerMillion = 1_000_000.0
	costPrecision    = 10_000.0 // round to 4 decimal places

	// Flat fallback for entirely unknown providers, USD per million tokens.
	// A documented approximation, not a silent failure.
	fallbackInputPerM  = 1.0
	fallbackOutputPerM = 3.0
)

// ModelPrice holds per-million-token USD rates for one model.
type ModelPrice struct {
	Model      string
	InputPerM  float64
	OutputPerM float64
}

// Provider tables are ordered: the first-listed model is the documented
// fallback when a requested model is missing from the table.
//
//nolint:gochecknoglobals // Static pricing data.
var providerPricing = map[string][]ModelPrice{
	"openai": {
		{Model: "gpt-4o", InputPerM: 2.50, OutputPerM: 10.00},
		{Model: "gpt-4o-mini", InputPerM: 0.15, OutputPerM: 0.60},
		{Model: "gpt-4-turbo", InputPerM: 10.00, OutputPerM: 30.00},
		{Model: "gpt-3.5-turbo", InputPerM: 0.50, OutputPerM: 1.50},
	},
	"anthropic": {
		{Model: "claude-sonnet-4-20250514", InputPerM: 3.00, OutputPerM: 15.00},
		{Model: "claude-3-5-sonnet-20241022", InputPerM: 3.00, OutputPerM: 15.00},
		{Model: "claude-3-5-haiku-20241022", InputPerM: 0.80, OutputPerM: 4.00},
	},
	"google": {
		{Model: "gemini-1.5-pro", InputPerM: 1.25, OutputPerM: 5.00},
		{Model: "gemini-1.5-flash", InputPerM: 0.075, OutputPerM: 0.30},
		{Model: "gemini-2.0-flash", InputPerM: 0.10, OutputPerM: 0.40},
	},
	"perplexity": {
		{Model: "sonar", InputPerM: 1.00, OutputPerM: 1.00},
		{Model: "sonar-pro", InputPerM: 3.00, OutputPerM: 15.00},
	},
	"mistral": {
		{Model: "mistral-small-latest", InputPerM: 0.20, OutputPerM: 0.60},
		{Model: "mistral-large-latest", InputPerM: 2.00, OutputPerM: 6.00},
	},
}

// Product names that bill through a different platform's pricing table.
//
//nolint:gochecknoglobals // Static alias data.
var providerAliases = map[string]string{
	"gemini": "google",
}

// Calculate returns the USD cost of a call, rounded to 4 decimal places.
// Unknown models fall back to the provider's first-listed model; unknown
// providers fall back to a flat rate. Cost is linear in each token count.
func Calculate(provider, model string, tokensIn, tokensOut int) float64 {
	price := lookup(provider, model)

	cost := float64(tokensIn)/tokensPerMillion*price.InputPerM +
		float64(tokensOut)/tokensPerMillion*price.OutputPerM

	return math.Round(cost*costPrecision) / costPrecision
}

func lookup(provider, model string) ModelPrice {
	name := strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[name]; ok {
		name = canonical
	}

	models, ok := providerPricing[name]
	if !ok {
		return ModelPrice{
			Model:      model,
			InputPerM:  fallbackInputPerM,
			OutputPerM: fallbackOutputPerM,
		}
	}

	for _, m := range models {
		if m.Model == model {
			return m
		}
	}

	// Model not in the table: fall back to the provider's first-listed
	// model rather than billing zero.
	return models[0]
}
