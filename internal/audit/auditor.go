// Package audit runs intent prompts against LLM providers and records
// whether, and at what list rank, the brand is mentioned.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echorank/echorank/internal/brand"
	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
	"github.com/echorank/echorank/internal/pricing"
	"github.com/echorank/echorank/internal/ratelimit"
)

const (
	// DefaultMaxConcurrent bounds how many prompts run per batch. The
	// per-provider rate limiter stacks beneath this: a batch of 5
	// against a provider capped at 2 serializes into sub-waves of 2.
	DefaultMaxConcurrent = 5

	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
	defaultCallTimeout = 60 * time.Second
)

// Options configures one audit run.
type Options struct {
	Model         string
	MaxConcurrent int
	Intents       IntentFilter
}

// Summary reports the outcome of one provider audit run.
type Summary struct {
	RunID      string `json:"run_id"`
	Provider   string `json:"provider"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
}

// ProviderSource resolves provider names; satisfied by the registry.
type ProviderSource interface {
	Get(ctx context.Context, name string) (domain.Provider, error)
	List(ctx context.Context) ([]string, error)
}

// Auditor orchestrates audit runs.
type Auditor struct {
	providers ProviderSource
	exec      *ratelimit.Executor
	sim       *brand.SimilarityEngine
	bibles    domain.BrandStore
	intents   domain.IntentSource
	audits    domain.AuditStore
	costs     domain.CostLedger
}

// NewAuditor creates an auditor.
func NewAuditor(
	providers ProviderSource,
	exec *ratelimit.Executor,
	sim *brand.SimilarityEngine,
	bibles domain.BrandStore,
	intents domain.IntentSource,
	audits domain.AuditStore,
	costs domain.CostLedger,
) *Auditor {
	return &Auditor{
		providers: providers,
		exec:      exec,
		sim:       sim,
		bibles:    bibles,
		intents:   intents,
		audits:    audits,
		costs:     costs,
	}
}

// RunForProvider audits one provider across the filtered intent prompts.
// Per-prompt failures are tallied, never fatal; errors returned here are
// orchestration-level (unknown provider, store unavailable).
func (a *Auditor) RunForProvider(ctx context.Context, providerName string, opts Options) (*Summary, error) {
	provider, err := a.providers.Get(ctx, providerName)
	if err != nil {
		return nil, err
	}

	bible, err := a.bibles.GetBrandBible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand bible: %w", err)
	}

	prompts, err := LoadIntents(ctx, a.intents, opts.Intents)
	if err != nil {
		return nil, err
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	run := &domain.AuditRun{
		ID:        uuid.New().String(),
		Provider:  providerName,
		StartedAt: time.Now(),
	}
	if err := a.audits.CreateAuditRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create audit run: %w", err)
	}

	ctx = observability.WithRunID(ctx, run.ID)
	ctx = observability.WithProvider(ctx, providerName)
	logger := observability.FromContext(ctx)
	logger.Info("audit run started", observability.Int("prompts", len(prompts)))

	variants := bible.NameVariants()

	var mu sync.Mutex
	for start := 0; start < len(prompts); start += maxConcurrent {
		end := start + maxConcurrent
		if end > len(prompts) {
			end = len(prompts)
		}

		var wg sync.WaitGroup
		for _, prompt := range prompts[start:end] {
			wg.Add(1)
			go func(prompt domain.IntentPrompt) {
				defer wg.Done()

				err := a.executePrompt(ctx, provider, run.ID, prompt, variants, opts)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					run.Failed++
				} else {
					run.Successful++
				}
			}(prompt)
		}
		wg.Wait()
	}

	run.CompletedAt = time.Now()
	if err := a.audits.FinishAuditRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to finalize audit run: %w", err)
	}

	logger.Info("audit run completed",
		observability.Int("successful", run.Successful),
		observability.Int("failed", run.Failed))

	return &Summary{
		RunID:      run.ID,
		Provider:   providerName,
		Successful: run.Successful,
		Failed:     run.Failed,
	}, nil
}

// RunAll audits every available provider. A provider whose run fails is
// skipped; the remaining providers still complete.
func (a *Auditor) RunAll(ctx context.Context, opts Options) (map[string]*Summary, error) {
	names, err := a.providers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	summaries := make(map[string]*Summary, len(names))
	for _, name := range names {
		summary, runErr := a.RunForProvider(ctx, name, opts)
		if runErr != nil {
			observability.FromContext(ctx).Warn("skipping provider after audit failure",
				observability.String("provider", name),
				observability.Error(runErr))
			continue
		}
		summaries[name] = summary
	}

	return summaries, nil
}

// executePrompt runs one prompt against one provider. An error-carrying
// response skips cost tracking and result persistence entirely and counts
// as a failure.
func (a *Auditor) executePrompt(
	ctx context.Context,
	provider domain.Provider,
	runID string,
	prompt domain.IntentPrompt,
	variants []string,
	opts Options,
) error {
	model := opts.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	req := &domain.ChatRequest{
		Model: model,
		Messages: []domain.Message{
			{Role: "user", Content: prompt.Text},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Timeout:     defaultCallTimeout,
	}

	resp, err := a.exec.Execute(ctx, provider, req)
	if err != nil {
		return err
	}
	if resp.Failed() {
		observability.FromContext(ctx).Warn("prompt execution failed",
			observability.String("prompt_id", prompt.ID),
			observability.String("error", resp.Error))
		return fmt.Errorf("provider error: %s", resp.Error)
	}

	mentioned := brand.DetectMention(resp.Text, variants)
	rank, hasRank := 0, false
	if mentioned {
		rank, hasRank = brand.ExtractMentionRank(resp.Text, variants)
	}

	similarity, err := a.sim.Score(ctx, resp.Text)
	if err != nil {
		return fmt.Errorf("failed to score similarity: %w", err)
	}

	if resp.TokensIn+resp.TokensOut > 0 {
		cost := pricing.Calculate(resp.Provider, resp.Model, resp.TokensIn, resp.TokensOut)
		if err := a.costs.RecordCost(ctx, &domain.CostRecord{
			ID:        uuid.New().String(),
			Provider:  resp.Provider,
			Model:     resp.Model,
			Operation: domain.JobTypeAudit,
			TokensIn:  resp.TokensIn,
			TokensOut: resp.TokensOut,
			CostUSD:   cost,
			CreatedAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("failed to record cost: %w", err)
		}
	}

	return a.audits.SaveAuditResult(ctx, &domain.AuditResult{
		ID:          uuid.New().String(),
		RunID:       runID,
		Provider:    resp.Provider,
		Model:       resp.Model,
		PromptID:    prompt.ID,
		PromptText:  prompt.Text,
		IntentClass: prompt.IntentClass,
		Response:    resp.Text,
		Mentioned:   mentioned,
		Rank:        rank,
		HasRank:     hasRank,
		Similarity:  similarity,
		TokensIn:    resp.TokensIn,
		TokensOut:   resp.TokensOut,
		LatencyMs:   resp.Latency.Milliseconds(),
		CreatedAt:   time.Now(),
	})
}
