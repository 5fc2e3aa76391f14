package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/gates"
	"github.com/echorank/echorank/internal/observability"
	"github.com/echorank/echorank/internal/pricing"
	"github.com/echorank/echorank/internal/ratelimit"
)

const (
	schemaContext = "https://schema.org"

	maxFAQQuestions    = 3
	contentTemperature = 0.4
	contentMaxTokens   = 1024
	contentCallTimeout = 60 * time.Second
)

// ProviderSource resolves provider names; satisfied by the registry.
type ProviderSource interface {
	Get(ctx context.Context, name string) (domain.Provider, error)
}

// ContentBuilder generates structured content artifacts from the brand
// bible, gate-checks them, and persists them with their reports.
type ContentBuilder struct {
	providers ProviderSource
	exec      *ratelimit.Executor
	bibles    domain.BrandStore
	gates     *gates.Runner
	artifacts domain.ArtifactStore
	costs     domain.CostLedger
}

// NewContentBuilder creates a content builder.
func NewContentBuilder(
	providers ProviderSource,
	exec *ratelimit.Executor,
	bibles domain.BrandStore,
	gateRunner *gates.Runner,
	artifacts domain.ArtifactStore,
	costs domain.CostLedger,
) *ContentBuilder {
	return &ContentBuilder{
		providers: providers,
		exec:      exec,
		bibles:    bibles,
		gates:     gateRunner,
		artifacts: artifacts,
		costs:     costs,
	}
}

// BuildArtifact generates one artifact of the given kind, evaluates it
// against the gates, and persists it together with the gate report. The
// artifact is saved even when gates fail: the report is the review queue.
func (b *ContentBuilder) BuildArtifact(
	ctx context.Context,
	providerName, kind string,
) (*domain.ContentArtifact, *gates.Report, error) {
	bible, err := b.bibles.GetBrandBible(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load brand bible: %w", err)
	}

	var (
		data map[string]any
		text string
	)
	switch kind {
	case "organization":
		data, text = organizationArtifact(bible)
	case "software-application":
		data, text = softwareApplicationArtifact(bible)
	case "faq-page":
		data, text, err = b.faqArtifact(ctx, providerName, bible)
	case "blog-posting":
		data, text, err = b.blogArtifact(ctx, providerName, bible)
	default:
		return nil, nil, fmt.Errorf("unknown artifact kind: %s", kind)
	}
	if err != nil {
		return nil, nil, err
	}

	candidate := &gates.Candidate{
		Kind:       kind,
		Data:       data,
		Text:       text,
		GoldenText: bible.CanonicalDescription(),
	}
	report, err := b.gates.Evaluate(ctx, candidate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to evaluate gates: %w", err)
	}

	artifact := &domain.ContentArtifact{
		ID:        uuid.New().String(),
		Kind:      kind,
		Data:      data,
		Text:      text,
		CreatedAt: time.Now(),
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode gate report: %w", err)
	}
	if err := b.artifacts.SaveArtifact(ctx, artifact, reportJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to save artifact: %w", err)
	}

	observability.FromContext(ctx).Info("artifact built",
		observability.String("kind", kind),
		observability.Bool("gates_pass", report.Pass))

	return artifact, report, nil
}

func organizationArtifact(bible *domain.BrandBible) (map[string]any, string) {
	data := map[string]any{
		"@context":    schemaContext,
		"@type":       "Organization",
		"name":        bible.Name,
		"url":         bible.URL,
		"description": bible.CanonicalDescription(),
	}
	return data, bible.CanonicalDescription()
}

func softwareApplicationArtifact(bible *domain.BrandBible) (map[string]any, string) {
	category := "BusinessApplication"
	if len(bible.TopicPillars) > 0 {
		category = bible.TopicPillars[0]
	}
	data := map[string]any{
		"@context":            schemaContext,
		"@type":               "SoftwareApplication",
		"name":                bible.Name,
		"applicationCategory": category,
		"description":         bible.CanonicalDescription(),
	}
	return data, bible.CanonicalDescription()
}

func (b *ContentBuilder) faqArtifact(
	ctx context.Context,
	providerName string,
	bible *domain.BrandBible,
) (map[string]any, string, error) {
	topics := bible.TopicPillars
	if len(topics) == 0 {
		topics = []string{"getting started"}
	}
	if len(topics) > maxFAQQuestions {
		topics = topics[:maxFAQQuestions]
	}

	var (
		entities []any
		lines    []string
	)
	for _, topic := range topics {
		question := fmt.Sprintf("How does %s help with %s?", bible.Name, topic)
		answer, err := b.draft(ctx, providerName, bible, question)
		if err != nil {
			return nil, "", err
		}

		entities = append(entities, map[string]any{
			"@type": "Question",
			"name":  question,
			"acceptedAnswer": map[string]any{
				"@type": "Answer",
				"text":  answer,
			},
		})
		lines = append(lines, fmt.Sprintf("Q: %s\nA: %s", question, answer))
	}

	data := map[string]any{
		"@context":   schemaContext,
		"@type":      "FAQPage",
		"mainEntity": entities,
	}
	return data, strings.Join(lines, "\n\n"), nil
}

func (b *ContentBuilder) blogArtifact(
	ctx context.Context,
	providerName string,
	bible *domain.BrandBible,
) (map[string]any, string, error) {
	topic := "how teams use " + bible.Name
	if len(bible.TopicPillars) > 0 {
		topic = bible.TopicPillars[0]
	}

	prompt := fmt.Sprintf(
		"Write a short blog post, three to five sentences, about %s and how %s addresses it.",
		topic, bible.Name)
	body, err := b.draft(ctx, providerName, bible, prompt)
	if err != nil {
		return nil, "", err
	}

	headline := fmt.Sprintf("%s and %s", capitalize(topic), bible.Name)
	data := map[string]any{
		"@context":    schemaContext,
		"@type":       "BlogPosting",
		"headline":    headline,
		"articleBody": body,
	}
	return data, body, nil
}

// draft asks the provider for brand-voiced copy with the bible's voice and
// vocabulary rules in the system prompt.
func (b *ContentBuilder) draft(
	ctx context.Context,
	providerName string,
	bible *domain.BrandBible,
	prompt string,
) (string, error) {
	provider, err := b.providers.Get(ctx, providerName)
	if err != nil {
		return "", err
	}

	req := &domain.ChatRequest{
		Model: provider.DefaultModel(),
		Messages: []domain.Message{
			{Role: "system", Content: voiceInstructions(bible)},
			{Role: "user", Content: prompt},
		},
		Temperature: contentTemperature,
		MaxTokens:   contentMaxTokens,
		Timeout:     contentCallTimeout,
	}

	resp, err := b.exec.Execute(ctx, provider, req)
	if err != nil {
		return "", fmt.Errorf("failed to draft content: %w", err)
	}
	if resp.Failed() {
		return "", fmt.Errorf("provider error: %s", resp.Error)
	}

	if resp.TokensIn+resp.TokensOut > 0 {
		cost := pricing.Calculate(resp.Provider, resp.Model, resp.TokensIn, resp.TokensOut)
		if err := b.costs.RecordCost(ctx, &domain.CostRecord{
			ID:        uuid.New().String(),
			Provider:  resp.Provider,
			Model:     resp.Model,
			Operation: domain.JobTypeContent,
			TokensIn:  resp.TokensIn,
			TokensOut: resp.TokensOut,
			CostUSD:   cost,
			CreatedAt: time.Now(),
		}); err != nil {
			return "", fmt.Errorf("failed to record cost: %w", err)
		}
	}

	return resp.Text, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func voiceInstructions(bible *domain.BrandBible) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You write marketing copy for %s. %s",
		bible.Name, bible.CanonicalDescription())

	if len(bible.VoiceAttributes) > 0 {
		fmt.Fprintf(&sb, " Voice: %s.", strings.Join(bible.VoiceAttributes, ", "))
	}
	if len(bible.ForbiddenTerms) > 0 {
		fmt.Fprintf(&sb, " Never use these words: %s.", strings.Join(bible.ForbiddenTerms, ", "))
	}
	return sb.String()
}
