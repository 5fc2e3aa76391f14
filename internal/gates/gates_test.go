package gates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/brand"
	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/gates"
)

func TestCheckStructure(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		data    map[string]any
		missing []string
	}{
		{
			name: "complete organization",
			kind: "organization",
			data: map[string]any{
				"@context":    "https://schema.org",
				"@type":       "Organization",
				"name":        "Matey AI",
				"url":         "https://matey.example",
				"description": "Contract automation.",
			},
		},
		{
			name: "organization missing url and description",
			kind: "organization",
			data: map[string]any{
				"@context": "https://schema.org",
				"@type":    "Organization",
				"name":     "Matey AI",
			},
			missing: []string{"url", "description"},
		},
		{
			name: "empty string counts as missing",
			kind: "blog-posting",
			data: map[string]any{
				"@context":    "https://schema.org",
				"@type":       "BlogPosting",
				"headline":    "",
				"articleBody": "text",
			},
			missing: []string{"headline"},
		},
		{
			name: "faq page needs mainEntity",
			kind: "faq-page",
			data: map[string]any{
				"@context":   "https://schema.org",
				"@type":      "FAQPage",
				"mainEntity": []any{},
			},
			missing: []string{"mainEntity"},
		},
		{
			name: "unknown kind only needs the envelope",
			kind: "press-release",
			data: map[string]any{
				"@context": "https://schema.org",
				"@type":    "NewsArticle",
			},
		},
		{
			name:    "unknown kind without envelope",
			kind:    "press-release",
			data:    map[string]any{"headline": "x"},
			missing: []string{"@context", "@type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.missing, gates.CheckStructure(tt.kind, tt.data))
		})
	}
}

// axisEmbedder maps known texts onto fixed axes so similarity outcomes are
// exact.
type axisEmbedder struct {
	vectors map[string][]float64
}

func (e axisEmbedder) Generate(_ context.Context, text string) ([]float64, error) {
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	return []float64{1, 0}, nil
}

type bibleStore struct {
	bible *domain.BrandBible
}

func (s bibleStore) GetBrandBible(_ context.Context) (*domain.BrandBible, error) {
	return s.bible, nil
}

func (s bibleStore) SaveBrandBible(_ context.Context, _ *domain.BrandBible) error {
	return nil
}

const (
	readableText = "We help small firms. They save time. The work is fast."
	driftedText  = "We talk of plants. They grow well. The soil stays wet."
)

func newRunner(t *testing.T, cfg gates.Config) *gates.Runner {
	t.Helper()

	store := bibleStore{bible: &domain.BrandBible{
		Name:           "Matey AI",
		Description:    "brand description",
		ForbiddenTerms: []string{"cheap", "hack"},
	}}

	embedder := axisEmbedder{vectors: map[string][]float64{
		"brand description": {1, 0},
		readableText:        {1, 0},
		driftedText:         {0, 1},
	}}

	sim := brand.NewSimilarityEngine(embedder, store, brand.NewVectorCache())
	return gates.NewRunner(sim, store, cfg)
}

func envelope(kind string) map[string]any {
	switch kind {
	case "faq-page":
		return map[string]any{
			"@context":   "https://schema.org",
			"@type":      "FAQPage",
			"mainEntity": []any{map[string]any{"@type": "Question"}},
		}
	default:
		return map[string]any{
			"@context": "https://schema.org",
			"@type":    "Thing",
		}
	}
}

func TestRunner_AllGatesPass(t *testing.T) {
	runner := newRunner(t, gates.DefaultConfig())

	report, err := runner.Evaluate(context.Background(), &gates.Candidate{
		Kind:       "faq-page",
		Data:       envelope("faq-page"),
		Text:       readableText,
		GoldenText: readableText,
	})
	require.NoError(t, err)
	require.True(t, report.Pass)
	require.Empty(t, report.Failures)
}

func TestRunner_FailureNamesTheGate(t *testing.T) {
	runner := newRunner(t, gates.DefaultConfig())

	report, err := runner.Evaluate(context.Background(), &gates.Candidate{
		Kind: "faq-page",
		Data: map[string]any{"@context": "https://schema.org"},
		Text: "Our cheap plan is a quick hack. It works fine. You save money.",
	})
	require.NoError(t, err)
	require.False(t, report.Pass)

	names := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		names = append(names, f.Gate)
	}
	require.Contains(t, names, gates.GateStructure)
	require.Contains(t, names, gates.GateForbiddenPhrase)
}

func TestRunner_DisableForbiddenGate(t *testing.T) {
	cfg := gates.DefaultConfig()
	cfg.DisableForbiddenGate = true
	runner := newRunner(t, cfg)

	report, err := runner.Evaluate(context.Background(), &gates.Candidate{
		Kind: "generic",
		Data: envelope("generic"),
		Text: "Our cheap plan works fine. It saves you real money today.",
	})
	require.NoError(t, err)
	require.True(t, report.Pass)
}

func TestRunner_ReadabilityGate(t *testing.T) {
	runner := newRunner(t, gates.DefaultConfig())

	report, err := runner.Evaluate(context.Background(), &gates.Candidate{
		Kind: "generic",
		Data: envelope("generic"),
		Text: "Organizational interoperability considerations necessitate comprehensive " +
			"infrastructural reconfiguration methodologies throughout heterogeneous " +
			"institutional environments.",
	})
	require.NoError(t, err)
	require.False(t, report.Pass)
	require.Equal(t, gates.GateReadability, report.Failures[0].Gate)
}

func TestRunner_SemanticDriftGate(t *testing.T) {
	runner := newRunner(t, gates.DefaultConfig())

	report, err := runner.Evaluate(context.Background(), &gates.Candidate{
		Kind:       "generic",
		Data:       envelope("generic"),
		Text:       driftedText,
		GoldenText: readableText,
	})
	require.NoError(t, err)
	require.False(t, report.Pass)

	names := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		names = append(names, f.Gate)
	}
	require.Contains(t, names, gates.GateSemanticDrift)
}

func TestRunner_NoGoldenSkipsDriftGate(t *testing.T) {
	runner := newRunner(t, gates.DefaultConfig())

	report, err := runner.Evaluate(context.Background(), &gates.Candidate{
		Kind: "generic",
		Data: envelope("generic"),
		Text: driftedText,
	})
	require.NoError(t, err)
	require.True(t, report.Pass)
}
