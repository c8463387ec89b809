// Package retrieval 提供作品的关键词检索与语义检索
package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"poetry-search/internal/domain/entity"
	"poetry-search/internal/domain/repository"
	"poetry-search/pkg/logger"
	"poetry-search/pkg/metrics"
)

// Embedder 短语向量获取接口，缺失位置为 nil
type Embedder interface {
	Fetch(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine 检索引擎
type Engine struct {
	repo     repository.SearchRepository
	embedder Embedder
	cfg      Config
}

// NewEngine 创建检索引擎，embedder 为 nil 时语义检索返回 ErrSemanticDisabled
func NewEngine(repo repository.SearchRepository, embedder Embedder, cfg Config) *Engine {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxLimit
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = min(defaultLimit, cfg.MaxLimit)
	}
	if cfg.SemanticTotalCap <= 0 {
		cfg.SemanticTotalCap = defaultSemanticTotalCap
	}
	return &Engine{repo: repo, embedder: embedder, cfg: cfg}
}

// SemanticEnabled 语义检索是否可用
func (e *Engine) SemanticEnabled() bool {
	return e != nil && e.embedder != nil
}

// Lexical 全文检索与三元组相似度检索
func (e *Engine) Lexical(ctx context.Context, q LexicalQuery) (*SearchOutput, error) {
	start := time.Now()

	keyword := strings.TrimSpace(q.Keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", ErrInvalidQuery)
	}
	limit, err := e.pageLimit(q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}

	hits, total, err := e.repo.Lexical(ctx, keyword, limit, q.Offset)
	if err != nil {
		metrics.SearchTotal.WithLabelValues("lexical", "error").Inc()
		return nil, fmt.Errorf("failed to run lexical search: %w", err)
	}

	out := e.finish("lexical", start, total, hits)
	logger.Debug(ctx, "lexical search finished",
		"keyword", keyword,
		"total", out.Total,
		"returned", len(out.Results),
	)
	return out, nil
}

// Semantic 以短语向量的算术平均作为查询向量，按作品最相近的句子排序
func (e *Engine) Semantic(ctx context.Context, q SemanticQuery) (*SearchOutput, error) {
	start := time.Now()

	phrases := make([]string, 0, len(q.Phrases))
	for _, p := range q.Phrases {
		if p = strings.TrimSpace(p); p != "" {
			phrases = append(phrases, p)
		}
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("%w: at least one phrase is required", ErrInvalidQuery)
	}
	limit, err := e.pageLimit(q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	if !e.SemanticEnabled() {
		metrics.SearchTotal.WithLabelValues("semantic", "disabled").Inc()
		return nil, ErrSemanticDisabled
	}

	vectors, err := e.embedder.Fetch(ctx, phrases)
	if err != nil {
		logger.Warn(ctx, "phrase embedding failed", "phrases", len(phrases), "error", err.Error())
	}
	query := meanVector(vectors)
	if query == nil {
		metrics.SearchTotal.WithLabelValues("semantic", "unavailable").Inc()
		return nil, ErrEmbeddingUnavailable
	}

	hits, err := e.repo.Semantic(ctx, query, limit, q.Offset)
	if err != nil {
		metrics.SearchTotal.WithLabelValues("semantic", "error").Inc()
		return nil, fmt.Errorf("failed to run semantic search: %w", err)
	}
	embedded, err := e.repo.CountEmbeddedPoems(ctx)
	if err != nil {
		metrics.SearchTotal.WithLabelValues("semantic", "error").Inc()
		return nil, fmt.Errorf("failed to count embedded poems: %w", err)
	}

	for _, h := range hits {
		h.Score = roundTo(h.Score, 4)
	}

	out := e.finish("semantic", start, min(embedded, int64(e.cfg.SemanticTotalCap)), hits)
	logger.Debug(ctx, "semantic search finished",
		"phrases", len(phrases),
		"total", out.Total,
		"returned", len(out.Results),
	)
	return out, nil
}

func (e *Engine) pageLimit(limit, offset int) (int, error) {
	if limit == 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit < 1 || limit > e.cfg.MaxLimit {
		return 0, fmt.Errorf("%w: limit must be within 1..%d", ErrInvalidQuery, e.cfg.MaxLimit)
	}
	if offset < 0 {
		return 0, fmt.Errorf("%w: offset must not be negative", ErrInvalidQuery)
	}
	return limit, nil
}

func (e *Engine) finish(mode string, start time.Time, total int64, hits []*entity.PoemHit) *SearchOutput {
	if hits == nil {
		hits = []*entity.PoemHit{}
	}
	elapsed := time.Since(start)
	metrics.SearchTotal.WithLabelValues(mode, "success").Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	return &SearchOutput{
		Total:       total,
		Results:     hits,
		QueryTimeMs: roundTo(float64(elapsed.Microseconds())/1000, 2),
	}
}

// meanVector 对非空向量逐维求算术平均，维度不一致的向量被忽略
func meanVector(vectors [][]float32) []float32 {
	var sum []float64
	n := 0
	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		if len(v) != len(sum) {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]float32, len(sum))
	for i, s := range sum {
		out[i] = float32(s / float64(n))
	}
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
