package jobs_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/brand"
	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/gates"
	"github.com/echorank/echorank/internal/jobs"
	"github.com/echorank/echorank/internal/ratelimit"
)

type contentStore struct {
	mu        sync.Mutex
	bible     *domain.BrandBible
	artifacts []*domain.ContentArtifact
	reports   [][]byte
	costs     []*domain.CostRecord
}

func (s *contentStore) GetBrandBible(_ context.Context) (*domain.BrandBible, error) {
	return s.bible, nil
}

func (s *contentStore) SaveBrandBible(_ context.Context, b *domain.BrandBible) error {
	s.bible = b
	return nil
}

func (s *contentStore) SaveArtifact(_ context.Context, a *domain.ContentArtifact, report []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
	s.reports = append(s.reports, report)
	return nil
}

func (s *contentStore) RecordCost(_ context.Context, r *domain.CostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costs = append(s.costs, r)
	return nil
}

type draftProvider struct {
	text string
}

func (p draftProvider) Chat(_ context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	return &domain.ChatResponse{
		Provider:   "draft",
		Model:      req.Model,
		Text:       p.text,
		TokensIn:   20,
		TokensOut:  40,
		StatusCode: 200,
	}, nil
}

func (draftProvider) Name() string         { return "draft" }
func (draftProvider) DefaultModel() string { return "draft-1" }

type singleProviderSource struct {
	provider domain.Provider
}

func (s singleProviderSource) Get(_ context.Context, name string) (domain.Provider, error) {
	if name != s.provider.Name() {
		return nil, domain.ErrProviderNotConfigured
	}
	return s.provider, nil
}

type flatEmbedder struct{}

func (flatEmbedder) Generate(_ context.Context, _ string) ([]float64, error) {
	return []float64{1, 1}, nil
}

func newBuilder(store *contentStore, provider domain.Provider) *jobs.ContentBuilder {
	limiter := ratelimit.NewLimiter(ratelimit.DefaultCaps())
	exec := ratelimit.NewExecutorWithBackoff(limiter, 1, time.Millisecond, time.Millisecond)
	sim := brand.NewSimilarityEngine(flatEmbedder{}, store, brand.NewVectorCache())
	gateRunner := gates.NewRunner(sim, store, gates.DefaultConfig())

	return jobs.NewContentBuilder(
		singleProviderSource{provider: provider},
		exec, store, gateRunner, store, store,
	)
}

func contentBible() *domain.BrandBible {
	return &domain.BrandBible{
		Name:           "Matey AI",
		URL:            "https://matey.example",
		Description:    "Matey AI automates contracts. Small legal teams save time.",
		TopicPillars:   []string{"contract automation", "compliance", "e-signatures", "billing"},
		ForbiddenTerms: []string{"cheap"},
	}
}

func TestContentBuilder_Organization(t *testing.T) {
	store := &contentStore{bible: contentBible()}
	builder := newBuilder(store, draftProvider{})

	artifact, report, err := builder.BuildArtifact(context.Background(), "draft", "organization")
	require.NoError(t, err)
	require.True(t, report.Pass)

	require.Equal(t, "organization", artifact.Kind)
	require.Equal(t, "Matey AI", artifact.Data["name"])
	require.Equal(t, "https://matey.example", artifact.Data["url"])

	// No provider call was needed, so no cost entry either.
	require.Empty(t, store.costs)
	require.Len(t, store.artifacts, 1)
	require.Contains(t, string(store.reports[0]), `"pass":true`)
}

func TestContentBuilder_FAQPage(t *testing.T) {
	store := &contentStore{bible: contentBible()}
	builder := newBuilder(store, draftProvider{
		text: "Matey AI handles this end to end. Your team reviews the result. It takes minutes.",
	})

	artifact, report, err := builder.BuildArtifact(context.Background(), "draft", "faq-page")
	require.NoError(t, err)
	require.True(t, report.Pass)

	// Question count is capped even though the bible lists four pillars.
	entities, ok := artifact.Data["mainEntity"].([]any)
	require.True(t, ok)
	require.Len(t, entities, 3)
	require.Len(t, store.costs, 3)
	require.Contains(t, artifact.Text, "Q: How does Matey AI help with contract automation?")
}

func TestContentBuilder_GateFailureStillPersists(t *testing.T) {
	store := &contentStore{bible: contentBible()}
	builder := newBuilder(store, draftProvider{
		text: "Matey AI is the cheap pick. It works fine. You save money.",
	})

	_, report, err := builder.BuildArtifact(context.Background(), "draft", "blog-posting")
	require.NoError(t, err)
	require.False(t, report.Pass)
	require.Equal(t, gates.GateForbiddenPhrase, report.Failures[0].Gate)

	// Artifact is saved anyway; the report is the review queue.
	require.Len(t, store.artifacts, 1)
	require.Contains(t, string(store.reports[0]), gates.GateForbiddenPhrase)
}

func TestContentBuilder_UnknownKind(t *testing.T) {
	store := &contentStore{bible: contentBible()}
	builder := newBuilder(store, draftProvider{})

	_, _, err := builder.BuildArtifact(context.Background(), "draft", "press-release")
	require.ErrorContains(t, err, "unknown artifact kind")
}
