package anthropic_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/provider/anthropic"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *anthropic.Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := anthropic.NewProvider(anthropic.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "claude-3-5-haiku-20241022",
		Timeout: 5,
	})
	require.NoError(t, err)
	return provider
}

func TestProvider_ChatReportsUsage(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "Matey AI is a strong option."}],
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`))
	})

	resp, err := provider.Chat(context.Background(), &domain.ChatRequest{
		Messages: []domain.Message{{Role: "user", Content: "What is the best contract tool?"}},
	})
	require.NoError(t, err)
	require.False(t, resp.Failed())
	require.Equal(t, 12, resp.TokensIn)
	require.Equal(t, 7, resp.TokensOut)
}

func TestProvider_ChatEstimatesTokensWhenUsageMissing(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "Matey AI is a strong option."}]
		}`))
	})

	resp, err := provider.Chat(context.Background(), &domain.ChatRequest{
		Messages: []domain.Message{{Role: "user", Content: "What is the best contract tool?"}},
	})
	require.NoError(t, err)
	require.False(t, resp.Failed())

	// Six prompt words and six answer words, estimated at round(words*1.3).
	require.Equal(t, domain.EstimateTokens("What is the best contract tool?"), resp.TokensIn)
	require.Equal(t, domain.EstimateTokens(resp.Text), resp.TokensOut)
	require.Positive(t, resp.TokensIn)
	require.Positive(t, resp.TokensOut)
}

func TestProvider_RequiresAPIKey(t *testing.T) {
	_, err := anthropic.NewProvider(anthropic.Config{})
	require.ErrorIs(t, err, domain.ErrProviderNotConfigured)
}
