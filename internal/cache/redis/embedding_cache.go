// Package redis provides a read-through cache for text embeddings. The
// audit and gate pipelines embed the same prompts and golden texts
// repeatedly; caching by content hash avoids duplicate vendor calls.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

const defaultTTL = 24 * time.Hour

// EmbeddingCache wraps an EmbeddingGenerator with a redis cache.
type EmbeddingCache struct {
	client *redis.Client
	inner  domain.EmbeddingGenerator
	model  string
	ttl    time.Duration
}

// NewEmbeddingCache creates a read-through embedding cache. model is part
// of the cache key so switching embedding models never serves stale
// vectors.
func NewEmbeddingCache(client *redis.Client, inner domain.EmbeddingGenerator, model string) *EmbeddingCache {
	return &EmbeddingCache{
		client: client,
		inner:  inner,
		model:  model,
		ttl:    defaultTTL,
	}
}

// Generate returns the cached vector for text, computing and storing it on
// a miss. Cache failures degrade to a direct generator call.
func (c *EmbeddingCache) Generate(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}

	key := c.cacheKey(text)
	logger := observability.FromContext(ctx)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var vec []float64
		if unmarshalErr := json.Unmarshal(raw, &vec); unmarshalErr == nil {
			return vec, nil
		}
		logger.Warn("discarding corrupt cached embedding", observability.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("embedding cache read failed, calling generator directly",
			observability.Error(err))
	}

	vec, err := c.inner.Generate(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(vec); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			logger.Warn("embedding cache write failed", observability.Error(setErr))
		}
	}

	return vec, nil
}

func (c *EmbeddingCache) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(c.model + "|" + text))
	return fmt.Sprintf("embedding:%s", hex.EncodeToString(hash[:]))
}
