package brand_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/brand"
	"github.com/echorank/echorank/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{name: "identical vectors", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, expected: 1},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, expected: 0},
		{name: "opposite vectors", a: []float64{1, 0}, b: []float64{-1, 0}, expected: -1},
		{name: "zero vector is exactly zero", a: []float64{0, 0}, b: []float64{3, 4}, expected: 0},
		{name: "empty vectors", a: nil, b: nil, expected: 0},
		{name: "mismatched lengths", a: []float64{1, 2}, b: []float64{1, 2, 3}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.expected, brand.CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_Range(t *testing.T) {
	vectors := [][]float64{
		{1, 2, 3}, {-4, 0.5, 2}, {0.1, 0.1, 0.1}, {9, -9, 3},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			sim := brand.CosineSimilarity(a, b)
			require.GreaterOrEqual(t, sim, -1.0-1e-9)
			require.LessOrEqual(t, sim, 1.0+1e-9)
		}
	}
}

// stubEmbedder maps known texts to fixed vectors and counts calls.
type stubEmbedder struct {
	vectors map[string][]float64
	calls   atomic.Int64
}

func (s *stubEmbedder) Generate(_ context.Context, text string) ([]float64, error) {
	s.calls.Add(1)
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

type stubBrandStore struct {
	bible *domain.BrandBible
}

func (s *stubBrandStore) GetBrandBible(_ context.Context) (*domain.BrandBible, error) {
	return s.bible, nil
}

func (s *stubBrandStore) SaveBrandBible(_ context.Context, bible *domain.BrandBible) error {
	s.bible = bible
	return nil
}

func TestSimilarityEngine_Score(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"the brand description": {1, 0, 0},
		"on-brand text":         {1, 0, 0},
		"off-brand text":        {0, 1, 0},
	}}
	store := &stubBrandStore{bible: &domain.BrandBible{
		Name:        "Matey AI",
		Description: "the brand description",
	}}

	engine := brand.NewSimilarityEngine(embedder, store, brand.NewVectorCache())

	onBrand, err := engine.Score(ctx, "on-brand text")
	require.NoError(t, err)
	require.InDelta(t, 1.0, onBrand, 1e-9)

	offBrand, err := engine.Score(ctx, "off-brand text")
	require.NoError(t, err)
	require.InDelta(t, 0.0, offBrand, 1e-9)

	_, err = engine.Score(ctx, "")
	require.Error(t, err)
}

func TestSimilarityEngine_CachesBrandVector(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float64{}}
	store := &stubBrandStore{bible: &domain.BrandBible{
		Name:        "Matey AI",
		Description: "desc",
	}}

	engine := brand.NewSimilarityEngine(embedder, store, brand.NewVectorCache())

	_, err := engine.Score(ctx, "some text")
	require.NoError(t, err)
	_, err = engine.Score(ctx, "other text")
	require.NoError(t, err)

	// 2 text embeds + 1 brand embed: the brand vector is computed once.
	require.Equal(t, int64(3), embedder.calls.Load())

	engine.Invalidate()
	_, err = engine.Score(ctx, "third text")
	require.NoError(t, err)

	// Invalidation forces a recompute on the next score.
	require.Equal(t, int64(5), embedder.calls.Load())
}

func TestVectorCache_SingleFlight(t *testing.T) {
	ctx := context.Background()
	cache := brand.NewVectorCache()

	var computes atomic.Int64
	compute := func(context.Context) ([]float64, error) {
		computes.Add(1)
		return []float64{1, 2}, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := cache.GetOrCompute(ctx, compute)
			require.NoError(t, err)
			require.Len(t, vec, 2)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), computes.Load())
}
