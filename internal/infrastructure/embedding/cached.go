package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"poetry-search/internal/infrastructure/persistence/redis"
	"poetry-search/pkg/logger"
	"poetry-search/pkg/metrics"
)

// Fetcher 向量获取接口
type Fetcher interface {
	Fetch(ctx context.Context, texts []string) ([][]float32, error)
}

// CachedClient 以 Redis 缓存查询短语向量，Redis 不可用时直接请求上游
type CachedClient struct {
	next      Fetcher
	cache     *redis.Cache
	model     string
	dimension int
	ttl       time.Duration
}

// NewCachedClient 创建带缓存的客户端
func NewCachedClient(next *Client, cache *redis.Cache, ttl time.Duration) *CachedClient {
	return newCachedClient(next, cache, next.Model(), next.Dimension(), ttl)
}

func newCachedClient(next Fetcher, cache *redis.Cache, model string, dimension int, ttl time.Duration) *CachedClient {
	return &CachedClient{
		next:      next,
		cache:     cache,
		model:     model,
		dimension: dimension,
		ttl:       ttl,
	}
}

// Fetch 逐条读取缓存，未命中的短语单独请求并回填
func (c *CachedClient) Fetch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var lastErr error

	for i, text := range texts {
		vec, err := c.fetchOne(ctx, text)
		if err != nil {
			lastErr = err
			continue
		}
		out[i] = vec
	}
	return out, lastErr
}

func (c *CachedClient) fetchOne(ctx context.Context, text string) ([]float32, error) {
	key := redis.BuildEmbeddingKey(c.model, c.dimension, text)
	data, hit, err := c.cache.GetOrLoadSafe(ctx, key, c.ttl, func() (interface{}, error) {
		vectors, err := c.next.Fetch(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 || vectors[0] == nil {
			return nil, nil
		}
		return vectors[0], nil
	})

	var loadErr *redis.LoadError
	switch {
	case err == nil && hit:
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
	case err == nil:
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
	case errors.As(err, &loadErr):
		// 同键等待者共享上游错误，不再各自重试
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		return nil, loadErr.Err
	default:
		// Redis 故障
		metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "embedding cache unavailable, fetching directly", "error", err.Error())
		vectors, err := c.next.Fetch(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vectors[0], nil
	}

	if len(data) == 0 {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}
