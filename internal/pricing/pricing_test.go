package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/pricing"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		model     string
		tokensIn  int
		tokensOut int
		expected  float64
	}{
		{
			name:      "gpt-4o one million each way",
			provider:  "openai",
			model:     "gpt-4o",
			tokensIn:  1_000_000,
			tokensOut: 1_000_000,
			expected:  12.5,
		},
		{
			name:      "gpt-4o-mini small call",
			provider:  "openai",
			model:     "gpt-4o-mini",
			tokensIn:  10_000,
			tokensOut: 2_000,
			expected:  0.0027, // 10k*0.15/M + 2k*0.60/M
		},
		{
			name:      "gemini alias resolves to google table",
			provider:  "gemini",
			model:     "gemini-1.5-pro",
			tokensIn:  1_000_000,
			tokensOut: 0,
			expected:  1.25,
		},
		{
			name:      "unknown model falls back to first-listed model",
			provider:  "openai",
			model:     "gpt-99",
			tokensIn:  1_000_000,
			tokensOut: 1_000_000,
			expected:  12.5, // gpt-4o rates
		},
		{
			name:      "unknown provider uses flat fallback rate",
			provider:  "acme-llm",
			model:     "whatever",
			tokensIn:  1_000_000,
			tokensOut: 1_000_000,
			expected:  4.0, // $1 in + $3 out
		},
		{
			name:      "zero tokens cost zero",
			provider:  "openai",
			model:     "gpt-4o",
			tokensIn:  0,
			tokensOut: 0,
			expected:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.Calculate(tt.provider, tt.model, tt.tokensIn, tt.tokensOut)
			require.InDelta(t, tt.expected, got, 0.00001)
		})
	}
}

func TestCalculate_LinearInTokenCounts(t *testing.T) {
	base := pricing.Calculate("anthropic", "claude-3-5-haiku-20241022", 100_000, 50_000)
	doubledIn := pricing.Calculate("anthropic", "claude-3-5-haiku-20241022", 200_000, 50_000)
	doubledOut := pricing.Calculate("anthropic", "claude-3-5-haiku-20241022", 100_000, 100_000)

	inOnly := pricing.Calculate("anthropic", "claude-3-5-haiku-20241022", 100_000, 0)
	outOnly := pricing.Calculate("anthropic", "claude-3-5-haiku-20241022", 0, 50_000)

	require.InDelta(t, base+inOnly, doubledIn, 0.0001)
	require.InDelta(t, base+outOnly, doubledOut, 0.0001)
}

func TestCalculate_Deterministic(t *testing.T) {
	first := pricing.Calculate("perplexity", "sonar", 12_345, 6_789)
	for range 10 {
		require.InDelta(t, first, pricing.Calculate("perplexity", "sonar", 12_345, 6_789), 0)
	}
	require.GreaterOrEqual(t, first, 0.0)
}
