package audit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/echorank/echorank/internal/domain"
)

// IntentFilter narrows which taxonomy prompts an audit run uses.
type IntentFilter struct {
	// Query keeps prompts whose intent class or text contains this
	// substring, case-insensitively.
	Query string

	// SampleFraction in (0,1) keeps a random fraction of the prompts.
	// Sampling without a seed is non-deterministic; tests must set Seed
	// or skip sampling.
	SampleFraction float64
	Seed           int64

	// Limit caps the number of prompts after filtering and sampling.
	Limit int
}

// LoadIntents reads the intent taxonomy and applies the filter.
func LoadIntents(ctx context.Context, source domain.IntentSource, f IntentFilter) ([]domain.IntentPrompt, error) {
	prompts, err := source.ListIntents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load intents: %w", err)
	}

	if f.Query != "" {
		query := strings.ToLower(f.Query)
		filtered := prompts[:0:0]
		for _, p := range prompts {
			if strings.Contains(strings.ToLower(p.IntentClass), query) ||
				strings.Contains(strings.ToLower(p.Text), query) {
				filtered = append(filtered, p)
			}
		}
		prompts = filtered
	}

	if f.SampleFraction > 0 && f.SampleFraction < 1 && len(prompts) > 0 {
		seed := f.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))

		sampled := append([]domain.IntentPrompt(nil), prompts...)
		rng.Shuffle(len(sampled), func(i, j int) {
			sampled[i], sampled[j] = sampled[j], sampled[i]
		})

		keep := int(math.Round(float64(len(sampled)) * f.SampleFraction))
		if keep < 1 {
			keep = 1
		}
		prompts = sampled[:keep]
	}

	if f.Limit > 0 && len(prompts) > f.Limit {
		prompts = prompts[:f.Limit]
	}

	return prompts, nil
}

// DefaultIntents is a small starter taxonomy seeded when the store is
// empty, so a fresh deployment can audit before the real taxonomy syncs.
func DefaultIntents() []domain.IntentPrompt {
	return []domain.IntentPrompt{
		{ID: "intent-001", Text: "What are the best tools for automating contract review?", IntentClass: "comparison"},
		{ID: "intent-002", Text: "Which legal software should a small law firm use?", IntentClass: "comparison"},
		{ID: "intent-003", Text: "How can startups handle legal paperwork without a lawyer?", IntentClass: "informational"},
		{ID: "intent-004", Text: "List the top contract management platforms.", IntentClass: "listicle"},
		{ID: "intent-005", Text: "Is AI reliable for drafting legal documents?", IntentClass: "trust"},
		{ID: "intent-006", Text: "Compare popular e-signature and contract tools.", IntentClass: "comparison"},
		{ID: "intent-007", Text: "What should I look for in contract automation software?", IntentClass: "consideration"},
		{ID: "intent-008", Text: "Recommend software for managing NDAs at scale.", IntentClass: "recommendation"},
	}
}
