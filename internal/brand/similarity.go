// Package brand holds the text-analysis primitives of the pipeline: brand
// mention detection, list-rank extraction, and embedding similarity against
// the cached brand vector.
package brand

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

// CosineSimilarity returns the cosine similarity of two vectors in [-1, 1].
// A zero-magnitude or mismatched input yields exactly 0; that is an edge
// case marker, not a meaningful neutral score.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// VectorCache caches the brand-description embedding for the lifetime of
// the process. Invalidation is explicit: the content-editing workflow calls
// Invalidate after saving the bible, never a timer.
type VectorCache struct {
	mu  sync.Mutex
	vec []float64
}

// NewVectorCache creates an empty vector cache.
func NewVectorCache() *VectorCache {
	return &VectorCache{}
}

// GetOrCompute returns the cached vector, computing it with compute on
// first use. The lock is held across compute so concurrent warm-ups do not
// issue duplicate embedding calls.
func (c *VectorCache) GetOrCompute(
	ctx context.Context,
	compute func(ctx context.Context) ([]float64, error),
) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vec != nil {
		return c.vec, nil
	}

	vec, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.vec = vec
	return vec, nil
}

// Invalidate drops the cached vector. The next Score recomputes it.
func (c *VectorCache) Invalidate() {
	c.mu.Lock()
	c.vec = nil
	c.mu.Unlock()
}

// SimilarityEngine scores arbitrary text against the brand's canonical
// description vector.
type SimilarityEngine struct {
	embedder domain.EmbeddingGenerator
	bibles   domain.BrandStore
	cache    *VectorCache
}

// NewSimilarityEngine creates a similarity engine.
func NewSimilarityEngine(
	embedder domain.EmbeddingGenerator,
	bibles domain.BrandStore,
	cache *VectorCache,
) *SimilarityEngine {
	return &SimilarityEngine{
		embedder: embedder,
		bibles:   bibles,
		cache:    cache,
	}
}

// Score embeds text and returns its cosine similarity to the brand vector.
func (e *SimilarityEngine) Score(ctx context.Context, text string) (float64, error) {
	if text == "" {
		return 0, errors.New("text cannot be empty")
	}

	brandVec, err := e.cache.GetOrCompute(ctx, e.embedBrand)
	if err != nil {
		return 0, fmt.Errorf("failed to compute brand vector: %w", err)
	}

	textVec, err := e.embedder.Generate(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("failed to embed text: %w", err)
	}

	return CosineSimilarity(textVec, brandVec), nil
}

// Invalidate drops the cached brand vector. Called by the content-editing
// workflow whenever the bible is saved.
func (e *SimilarityEngine) Invalidate() {
	e.cache.Invalidate()
}

func (e *SimilarityEngine) embedBrand(ctx context.Context) ([]float64, error) {
	bible, err := e.bibles.GetBrandBible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand bible: %w", err)
	}

	description := bible.CanonicalDescription()
	if description == "" {
		return nil, errors.New("brand bible has no description to embed")
	}

	observability.FromContext(ctx).Debug("computing brand vector",
		observability.Int("description_length", len(description)))

	return e.embedder.Generate(ctx, description)
}
