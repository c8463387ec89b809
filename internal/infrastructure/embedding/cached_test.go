package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	dto "github.com/prometheus/client_model/go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-search/internal/infrastructure/persistence/redis"
	"poetry-search/pkg/metrics"
)

type stubFetcher struct {
	calls int
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	if s.err != nil {
		return out, s.err
	}
	for i, text := range texts {
		out[i] = []float32{float32(len([]rune(text)))}
	}
	return out, nil
}

// slowFailingFetcher 延迟后返回错误，可并发调用
type slowFailingFetcher struct {
	calls int32
	delay time.Duration
}

func (s *slowFailingFetcher) Fetch(_ context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&s.calls, 1)
	time.Sleep(s.delay)
	return make([][]float32, len(texts)), errors.New("upstream down")
}

func cacheCounter(t *testing.T, result string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, metrics.EmbeddingCacheTotal.WithLabelValues(result).Write(m))
	return m.GetCounter().GetValue()
}

func newCacheWithServer(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return redis.NewCache(redis.Wrap(rdb)), mr
}

func TestCachedClient_HitsCacheOnSecondCall(t *testing.T) {
	cache, _ := newCacheWithServer(t)
	stub := &stubFetcher{}
	client := newCachedClient(stub, cache, "text-embedding-v1", 1536, time.Hour)

	out, err := client.Fetch(context.Background(), []string{"明月", "清风徐来"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {4}}, out)
	assert.Equal(t, 2, stub.calls)

	out, err = client.Fetch(context.Background(), []string{"明月"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}}, out)
	assert.Equal(t, 2, stub.calls)
}

func TestCachedClient_UpstreamErrorLeavesAbsent(t *testing.T) {
	cache, mr := newCacheWithServer(t)
	stub := &stubFetcher{err: errors.New("upstream down")}
	client := newCachedClient(stub, cache, "text-embedding-v1", 1536, time.Hour)

	out, err := client.Fetch(context.Background(), []string{"明月"})
	require.Error(t, err)
	assert.Nil(t, out[0])
	assert.Empty(t, mr.Keys())
}

func TestCachedClient_FallsBackWhenRedisDown(t *testing.T) {
	cache, mr := newCacheWithServer(t)
	mr.Close()

	stub := &stubFetcher{}
	client := newCachedClient(stub, cache, "text-embedding-v1", 1536, time.Hour)

	out, err := client.Fetch(context.Background(), []string{"明月"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}}, out)
	assert.Equal(t, 1, stub.calls)
}

func TestCachedClient_ConcurrentFailuresShareOneUpstreamCall(t *testing.T) {
	cache, mr := newCacheWithServer(t)
	upstream := &slowFailingFetcher{delay: 100 * time.Millisecond}
	client := newCachedClient(upstream, cache, "text-embedding-v1", 1536, time.Hour)

	errorsBefore := cacheCounter(t, "error")
	start := make(chan struct{})
	errs := make([]error, 5)

	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = client.Fetch(context.Background(), []string{"明月几时有"})
		}()
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		assert.EqualError(t, err, "upstream down")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.calls))
	assert.Equal(t, errorsBefore, cacheCounter(t, "error"))
	assert.Empty(t, mr.Keys())
}
