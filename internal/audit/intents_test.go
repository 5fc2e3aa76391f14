package audit_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/audit"
	"github.com/echorank/echorank/internal/domain"
)

type staticIntents struct {
	prompts []domain.IntentPrompt
	err     error
}

func (s staticIntents) ListIntents(_ context.Context) ([]domain.IntentPrompt, error) {
	return s.prompts, s.err
}

func taxonomy(n int) []domain.IntentPrompt {
	prompts := make([]domain.IntentPrompt, n)
	for i := range prompts {
		class := "comparison"
		if i%2 == 1 {
			class = "informational"
		}
		prompts[i] = domain.IntentPrompt{
			ID:          fmt.Sprintf("i-%03d", i),
			Text:        fmt.Sprintf("prompt %d", i),
			IntentClass: class,
		}
	}
	return prompts
}

func TestLoadIntents_Filter(t *testing.T) {
	ctx := context.Background()
	source := staticIntents{prompts: taxonomy(10)}

	tests := []struct {
		name   string
		filter audit.IntentFilter
		want   int
	}{
		{"no filter keeps all", audit.IntentFilter{}, 10},
		{"query matches intent class", audit.IntentFilter{Query: "COMPARISON"}, 5},
		{"query matches prompt text", audit.IntentFilter{Query: "prompt 3"}, 1},
		{"query with no match", audit.IntentFilter{Query: "pricing"}, 0},
		{"limit caps result", audit.IntentFilter{Limit: 3}, 3},
		{"limit above count is a no-op", audit.IntentFilter{Limit: 50}, 10},
		{"half sample", audit.IntentFilter{SampleFraction: 0.5, Seed: 42}, 5},
		{"tiny fraction keeps at least one", audit.IntentFilter{SampleFraction: 0.01, Seed: 42}, 1},
		{"sample then limit", audit.IntentFilter{SampleFraction: 0.5, Seed: 42, Limit: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := audit.LoadIntents(ctx, source, tt.filter)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
		})
	}
}

func TestLoadIntents_SeededSamplingIsDeterministic(t *testing.T) {
	ctx := context.Background()
	source := staticIntents{prompts: taxonomy(20)}
	filter := audit.IntentFilter{SampleFraction: 0.4, Seed: 7}

	first, err := audit.LoadIntents(ctx, source, filter)
	require.NoError(t, err)
	second, err := audit.LoadIntents(ctx, source, filter)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestLoadIntents_SourceError(t *testing.T) {
	ctx := context.Background()
	source := staticIntents{err: errors.New("taxonomy unreachable")}

	_, err := audit.LoadIntents(ctx, source, audit.IntentFilter{})
	require.ErrorContains(t, err, "taxonomy unreachable")
}

func TestDefaultIntents(t *testing.T) {
	prompts := audit.DefaultIntents()
	require.NotEmpty(t, prompts)

	seen := make(map[string]bool, len(prompts))
	for _, p := range prompts {
		require.NotEmpty(t, p.ID)
		require.NotEmpty(t, p.Text)
		require.NotEmpty(t, p.IntentClass)
		require.False(t, seen[p.ID])
		seen[p.ID] = true
	}
}
