// Package embedding 提供 OpenAI 兼容的 Embedding 服务客户端
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sashabaranov/go-openai"

	"poetry-search/internal/config"
	"poetry-search/pkg/logger"
	"poetry-search/pkg/metrics"
)

// ErrMissingAPIKey 未配置 API Key
var ErrMissingAPIKey = errors.New("embedding api key is not configured")

// ErrMalformedResponse 响应条数与请求不一致
var ErrMalformedResponse = errors.New("malformed embedding response")

// Client Embedding 客户端
type Client struct {
	api        *openai.Client
	model      string
	dimension  int
	maxRetries int
	retryDelay time.Duration
}

// NewClient 创建 Embedding 客户端
func NewClient(cfg *config.EmbeddingConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &Client{
		api:        openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Model 模型名称
func (c *Client) Model() string { return c.model }

// Dimension 向量维度
func (c *Client) Dimension() int { return c.dimension }

// Fetch 获取一组文本的向量，结果长度恒等于输入长度。
// 空白文本不发送，对应位置为 nil；重试耗尽或遇到不可重试错误时整体为 nil 并返回最后一次错误。
func (c *Client) Fetch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	positions := make([]int, 0, len(texts))
	inputs := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		positions = append(positions, i)
		inputs = append(inputs, text)
	}
	if len(inputs) == 0 {
		return out, nil
	}

	vectors, err := backoff.Retry(ctx,
		func() ([][]float32, error) { return c.call(ctx, inputs) },
		backoff.WithBackOff(&linearBackOff{step: c.retryDelay}),
		backoff.WithMaxTries(uint(c.maxRetries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn(ctx, "embedding request failed, retrying",
				"model", c.model,
				"inputs", len(inputs),
				"retry_in", next.String(),
				"error", err.Error(),
			)
		}),
	)
	if err != nil {
		return out, fmt.Errorf("failed to fetch embeddings: %w", err)
	}

	for j, pos := range positions {
		out[pos] = vectors[j]
	}
	return out, nil
}

// call 发起一次请求，非 429 的 4xx 标记为不可重试
func (c *Client) call(ctx context.Context, inputs []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(c.model),
	}
	if supportsDimensions(c.model) && c.dimension > 0 {
		req.Dimensions = c.dimension
	}

	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, req)
	metrics.EmbeddingRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())
	if err != nil {
		if isPermanent(err) {
			metrics.EmbeddingRequestsTotal.WithLabelValues(c.model, "permanent").Inc()
			return nil, backoff.Permanent(err)
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(c.model, "retryable").Inc()
		return nil, err
	}

	if len(resp.Data) != len(inputs) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(c.model, "retryable").Inc()
		return nil, fmt.Errorf("%w: want %d vectors, got %d", ErrMalformedResponse, len(inputs), len(resp.Data))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i := range data {
		vectors[i] = data[i].Embedding
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(c.model, "success").Inc()
	return vectors, nil
}

// supportsDimensions v3/v4 系列模型支持指定输出维度
func supportsDimensions(model string) bool {
	return strings.Contains(model, "v3") || strings.Contains(model, "v4")
}

func isPermanent(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

// linearBackOff 第 n 次重试前等待 step * n
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.step * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
