package echo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/brand"
	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/provider/echo"
)

func TestProvider_Chat(t *testing.T) {
	provider := echo.NewProvider([]string{"LegalZoom", "Clio", "Matey AI"})
	require.Equal(t, "echo", provider.Name())

	resp, err := provider.Chat(context.Background(), &domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "best contract tools?"},
		},
	})
	require.NoError(t, err)
	require.False(t, resp.Failed())
	require.Equal(t, 200, resp.StatusCode)
	require.Positive(t, resp.TokensOut)

	// The canned list is rankable.
	rank, ok := brand.ExtractMentionRank(resp.Text, []string{"Matey AI"})
	require.True(t, ok)
	require.Equal(t, 3, rank)
}

func TestProvider_ChatWithoutEntries(t *testing.T) {
	provider := echo.NewProvider(nil)

	resp, err := provider.Chat(context.Background(), &domain.ChatRequest{
		Messages: []domain.Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	require.Contains(t, resp.Text, "hello")
}

func TestProvider_NilRequest(t *testing.T) {
	provider := echo.NewProvider(nil)

	_, err := provider.Chat(context.Background(), nil)
	require.Error(t, err)
}
