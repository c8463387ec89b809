package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Cache 缓存服务
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存服务
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// LoadError loader 返回的错误，singleflight 的所有等待者共享同一个实例
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// GetOrLoadSafe Read-Through 缓存，使用 singleflight 合并同键并发加载。
// loader 返回 nil 时不写缓存；loader 失败时返回 *LoadError，其余错误来自 Redis 本身。
func (c *Cache) GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "cache.GetOrLoadSafe",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, true, nil
	}
	if !IsNil(err) {
		span.RecordError(err)
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		// 其他请求可能已经填充
		if val, err := c.client.rdb.Get(ctx, key).Bytes(); err == nil {
			return val, nil
		}

		data, err := loader()
		if err != nil {
			return nil, &LoadError{Err: err}
		}
		if data == nil {
			return []byte(nil), nil
		}

		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}
		if err := c.client.rdb.Set(ctx, key, bytes, ttl).Err(); err != nil {
			// 写缓存失败不影响返回
			span.RecordError(err)
		}
		return bytes, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))

	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	bytes, ok := result.([]byte)
	if !ok {
		return nil, false, errors.New("unexpected cache payload type")
	}
	return bytes, false, nil
}

// BuildEmbeddingKey 构建短语向量缓存键，模型与维度不同的向量互不复用
func BuildEmbeddingKey(model string, dimension int, phrase string) string {
	sum := sha1.Sum([]byte(phrase))
	return fmt.Sprintf("emb:%s:%d:%s", model, dimension, hex.EncodeToString(sum[:]))
}
