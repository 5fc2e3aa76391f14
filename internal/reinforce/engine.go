package reinforce

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
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
	// DefaultPromptCount is how many synthetic prompts each provider sees
	// per run.
	DefaultPromptCount = 10

	defaultMaxConcurrent = 5
	defaultTemperature   = 0.7
	defaultMaxTokens     = 1024
	defaultCallTimeout   = 60 * time.Second
)

// Options configures one reinforcement run.
type Options struct {
	Model         string
	PromptCount   int
	MaxConcurrent int

	// Seed makes prompt generation reproducible; zero seeds from the clock.
	Seed int64
}

// Summary reports one provider's reinforcement outcome.
type Summary struct {
	Provider   string `json:"provider"`
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Mentioned  int    `json:"mentioned"`
	Drifted    int    `json:"drifted"`
}

// ProviderSource resolves provider names; satisfied by the registry.
type ProviderSource interface {
	Get(ctx context.Context, name string) (domain.Provider, error)
	List(ctx context.Context) ([]string, error)
}

// Engine drives reinforcement runs across providers.
type Engine struct {
	providers ProviderSource
	exec      *ratelimit.Executor
	sim       *brand.SimilarityEngine
	bibles    domain.BrandStore
	logs      domain.ReinforcementStore
	costs     domain.CostLedger
	cooldown  *CooldownRegistry
}

// NewEngine creates a reinforcement engine.
func NewEngine(
	providers ProviderSource,
	exec *ratelimit.Executor,
	sim *brand.SimilarityEngine,
	bibles domain.BrandStore,
	logs domain.ReinforcementStore,
	costs domain.CostLedger,
	cooldown *CooldownRegistry,
) *Engine {
	return &Engine{
		providers: providers,
		exec:      exec,
		sim:       sim,
		bibles:    bibles,
		logs:      logs,
		costs:     costs,
		cooldown:  cooldown,
	}
}

// Run generates synthetic prompts from the brand bible and executes them
// against the named providers, or every available provider when the list is
// empty. Naming an unavailable provider is an error; with no names, only
// registered providers are visited. Providers inside a cooldown window are
// skipped; per-prompt failures are tallied, never fatal.
func (e *Engine) Run(ctx context.Context, providerNames []string, opts Options) (map[string]*Summary, error) {
	bible, err := e.bibles.GetBrandBible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand bible: %w", err)
	}

	explicit := len(providerNames) > 0
	names := providerNames
	if !explicit {
		names, err = e.providers.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list providers: %w", err)
		}
	}

	count := opts.PromptCount
	if count <= 0 {
		count = DefaultPromptCount
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	prompts := BuildPrompts(bible, count, rand.New(rand.NewSource(seed)))

	logger := observability.FromContext(ctx)
	summaries := make(map[string]*Summary, len(names))

	for _, name := range names {
		if e.cooldown.Cooling(name) {
			logger.Info("skipping provider in cooldown",
				observability.String("provider", name))
			continue
		}

		provider, err := e.providers.Get(ctx, name)
		if err != nil {
			if explicit {
				return nil, fmt.Errorf("provider %s: %w", name, err)
			}
			logger.Warn("skipping unresolvable provider",
				observability.String("provider", name),
				observability.Error(err))
			continue
		}

		summaries[name] = e.runProvider(ctx, provider, bible, prompts, opts)
	}

	return summaries, nil
}

func (e *Engine) runProvider(
	ctx context.Context,
	provider domain.Provider,
	bible *domain.BrandBible,
	prompts []string,
	opts Options,
) *Summary {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	ctx = observability.WithProvider(ctx, provider.Name())
	variants := bible.NameVariants()
	summary := &Summary{Provider: provider.Name(), Total: len(prompts)}

	var mu sync.Mutex
	for start := 0; start < len(prompts); start += maxConcurrent {
		// The cooldown is re-read before each wave so a drift hit stops
		// the run; only siblings already in flight may still complete.
		if e.cooldown.Cooling(provider.Name()) {
			observability.FromContext(ctx).Warn("cooldown tripped mid-run, abandoning remaining prompts",
				observability.Int("remaining", len(prompts)-start))
			break
		}

		end := start + maxConcurrent
		if end > len(prompts) {
			end = len(prompts)
		}

		var wg sync.WaitGroup
		for _, prompt := range prompts[start:end] {
			wg.Add(1)
			go func(prompt string) {
				defer wg.Done()

				mentioned, drifted, err := e.executePrompt(ctx, provider, bible, prompt, variants, opts)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					return
				}
				summary.Successful++
				if mentioned {
					summary.Mentioned++
				}
				if drifted {
					summary.Drifted++
				}
			}(prompt)
		}
		wg.Wait()
	}

	observability.FromContext(ctx).Info("reinforcement run completed",
		observability.Int("total", summary.Total),
		observability.Int("successful", summary.Successful),
		observability.Int("mentioned", summary.Mentioned),
		observability.Int("drifted", summary.Drifted))

	return summary
}

func (e *Engine) executePrompt(
	ctx context.Context,
	provider domain.Provider,
	bible *domain.BrandBible,
	prompt string,
	variants []string,
	opts Options,
) (mentioned, drifted bool, err error) {
	model := opts.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	req := &domain.ChatRequest{
		Model: model,
		Messages: []domain.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Timeout:     defaultCallTimeout,
	}

	resp, err := e.exec.Execute(ctx, provider, req)
	if err != nil {
		return false, false, err
	}
	if resp.Failed() {
		observability.FromContext(ctx).Warn("reinforcement prompt failed",
			observability.String("error", resp.Error))
		return false, false, fmt.Errorf("provider error: %s", resp.Error)
	}

	mentioned = brand.DetectMention(resp.Text, variants)

	hits := scanForbidden(resp.Text, bible.ForbiddenTerms)
	if len(hits) > 0 {
		drifted = true
		e.cooldown.Set(provider.Name())
		observability.FromContext(ctx).Warn("forbidden term in provider answer; entering cooldown",
			observability.Strings("hits", hits))
	}

	similarity, err := e.sim.Score(ctx, resp.Text)
	if err != nil {
		return false, false, fmt.Errorf("failed to score similarity: %w", err)
	}

	if resp.TokensIn+resp.TokensOut > 0 {
		cost := pricing.Calculate(resp.Provider, resp.Model, resp.TokensIn, resp.TokensOut)
		if err := e.costs.RecordCost(ctx, &domain.CostRecord{
			ID:        uuid.New().String(),
			Provider:  resp.Provider,
			Model:     resp.Model,
			Operation: domain.JobTypeReinforcement,
			TokensIn:  resp.TokensIn,
			TokensOut: resp.TokensOut,
			CostUSD:   cost,
			CreatedAt: time.Now(),
		}); err != nil {
			return false, false, fmt.Errorf("failed to record cost: %w", err)
		}
	}

	if err := e.logs.SaveReinforcementLog(ctx, &domain.ReinforcementLog{
		ID:            uuid.New().String(),
		Provider:      resp.Provider,
		Model:         resp.Model,
		Prompt:        prompt,
		Response:      resp.Text,
		Mentioned:     mentioned,
		Similarity:    similarity,
		ForbiddenHits: hits,
		Drift:         drifted,
		TokensIn:      resp.TokensIn,
		TokensOut:     resp.TokensOut,
		CreatedAt:     time.Now(),
	}); err != nil {
		return false, false, fmt.Errorf("failed to save reinforcement log: %w", err)
	}

	return mentioned, drifted, nil
}

// scanForbidden returns the forbidden terms present in text, matched
// case-insensitively as substrings.
func scanForbidden(text string, terms []string) []string {
	lowered := strings.ToLower(text)
	var hits []string
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(term)) {
			hits = append(hits, term)
		}
	}
	return hits
}
