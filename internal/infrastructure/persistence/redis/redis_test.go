package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return Wrap(rdb), mr
}

func TestClient_HealthCheck(t *testing.T) {
	client, mr := newTestClient(t)
	require.NoError(t, client.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}

func TestCache_GetOrLoadSafe(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	var calls int32
	loader := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return []float32{0.5, 0.25}, nil
	}

	data, hit, err := cache.GetOrLoadSafe(ctx, "emb:k", time.Hour, loader)
	require.NoError(t, err)
	assert.False(t, hit)

	var vec []float32
	require.NoError(t, json.Unmarshal(data, &vec))
	assert.Equal(t, []float32{0.5, 0.25}, vec)
	assert.True(t, mr.Exists("emb:k"))

	_, hit, err = cache.GetOrLoadSafe(ctx, "emb:k", time.Hour, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCache_GetOrLoadSafe_NilResultNotCached(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client)

	data, _, err := cache.GetOrLoadSafe(context.Background(), "emb:none", time.Hour, func() (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.False(t, mr.Exists("emb:none"))
}

func TestCache_GetOrLoadSafe_LoaderError(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client)

	_, _, err := cache.GetOrLoadSafe(context.Background(), "emb:err", time.Hour, func() (interface{}, error) {
		return nil, errors.New("upstream down")
	})
	assert.EqualError(t, err, "upstream down")

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.EqualError(t, loadErr.Err, "upstream down")
}

func TestCache_GetOrLoadSafe_RedisErrorIsNotLoadError(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client)
	mr.Close()

	called := false
	_, _, err := cache.GetOrLoadSafe(context.Background(), "emb:down", time.Hour, func() (interface{}, error) {
		called = true
		return []float32{1}, nil
	})
	require.Error(t, err)

	var loadErr *LoadError
	assert.False(t, errors.As(err, &loadErr))
	assert.False(t, called)
}

func TestCache_GetOrLoadSafe_ConcurrentLoadsShareResult(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client)

	var calls int32
	release := make(chan struct{})
	loader := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []float32{1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cache.GetOrLoadSafe(context.Background(), "emb:shared", time.Hour, loader)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestBuildEmbeddingKey(t *testing.T) {
	a := BuildEmbeddingKey("text-embedding-v1", 1536, "明月")
	b := BuildEmbeddingKey("text-embedding-v1", 1536, "明月")
	c := BuildEmbeddingKey("text-embedding-v4", 1024, "明月")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "emb:text-embedding-v1:1536:")
}

func TestRateLimiter_Allow(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	ctx := context.Background()
	key := BuildRateLimitKey("127.0.0.1", "/search")

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, key, 3, time.Second)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, err := limiter.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.False(t, allowed)
}
