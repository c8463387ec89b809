package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-search/internal/config"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

type embeddingItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// reversedServer 按倒序返回 data，每条向量的首个分量为输入序号
func reversedServer(t *testing.T, calls *int32, seen *embeddingRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = req
		}

		data := make([]embeddingItem, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, embeddingItem{Object: "embedding", Embedding: []float32{float32(i), 1}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
}

func newTestClient(t *testing.T, baseURL, model string) *Client {
	t.Helper()
	client, err := NewClient(&config.EmbeddingConfig{
		APIKey:     "sk-test",
		BaseURL:    baseURL,
		Model:      model,
		Dimension:  1024,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(&config.EmbeddingConfig{Model: "text-embedding-v1"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetch_OrdersByIndexAndKeepsBlankPositions(t *testing.T) {
	var calls int32
	var seen embeddingRequest
	srv := reversedServer(t, &calls, &seen)
	defer srv.Close()

	client := newTestClient(t, srv.URL, "text-embedding-v1")
	out, err := client.Fetch(context.Background(), []string{"床前明月光", "  ", "疑是地上霜", ""})
	require.NoError(t, err)

	require.Len(t, out, 4)
	assert.Equal(t, []float32{0, 1}, out[0])
	assert.Nil(t, out[1])
	assert.Equal(t, []float32{1, 1}, out[2])
	assert.Nil(t, out[3])

	assert.Equal(t, []string{"床前明月光", "疑是地上霜"}, seen.Input)
	assert.Equal(t, 0, seen.Dimensions)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_AllBlankSkipsRequest(t *testing.T) {
	var calls int32
	srv := reversedServer(t, &calls, nil)
	defer srv.Close()

	client := newTestClient(t, srv.URL, "text-embedding-v1")
	out, err := client.Fetch(context.Background(), []string{" ", "\t"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{nil, nil}, out)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestFetch_SendsDimensionsForV3AndV4(t *testing.T) {
	var calls int32
	var seen embeddingRequest
	srv := reversedServer(t, &calls, &seen)
	defer srv.Close()

	client := newTestClient(t, srv.URL, "text-embedding-v4")
	_, err := client.Fetch(context.Background(), []string{"春眠不觉晓"})
	require.NoError(t, err)
	assert.Equal(t, 1024, seen.Dimensions)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"busy","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[0.5],"index":0}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "text-embedding-v1")
	out, err := client.Fetch(context.Background(), []string{"白日依山尽"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, out[0])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_ExhaustedRetriesReturnAbsent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "text-embedding-v1")
	out, err := client.Fetch(context.Background(), []string{"黄河入海流", "欲穷千里目"})
	require.Error(t, err)
	assert.Equal(t, [][]float32{nil, nil}, out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "text-embedding-v1")
	out, err := client.Fetch(context.Background(), []string{"更上一层楼"})
	require.Error(t, err)
	assert.Nil(t, out[0])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_CountMismatchIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[0.5],"index":0}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "text-embedding-v1")
	out, err := client.Fetch(context.Background(), []string{"一", "二"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, [][]float32{nil, nil}, out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLinearBackOff(t *testing.T) {
	b := &linearBackOff{step: 2 * time.Second}
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
	b.Reset()
	assert.Equal(t, 2*time.Second, b.NextBackOff())
}
