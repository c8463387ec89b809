// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"poetry-search/internal/application/ingest"
	"poetry-search/internal/application/retrieval"
	"poetry-search/internal/config"
	"poetry-search/internal/infrastructure/embedding"
	"poetry-search/internal/infrastructure/persistence/postgres"
	"poetry-search/internal/infrastructure/persistence/redis"
	"poetry-search/internal/interfaces/http/handler"
	"poetry-search/internal/interfaces/http/middleware"
	"poetry-search/pkg/logger"
)

// ImporterApp 导入任务依赖容器
type ImporterApp struct {
	Importer   *ingest.Importer
	Checkpoint *ingest.Checkpoint
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional 提供 Redis 客户端，未启用或不可达时返回 nil，不阻塞启动
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	rc := cfg.Cache.Redis
	if !rc.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(redis.Options{
		Host:         rc.Host,
		Port:         rc.Port,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})
	if err != nil {
		logger.Warn(ctx, "redis not available, phrase cache and rate limit disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideEmbeddingClientOptional 未配置 API Key 时返回 nil，语义检索降级为不可用
func ProvideEmbeddingClientOptional(ctx context.Context, cfg *config.Config) *embedding.Client {
	client, err := embedding.NewClient(&cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding not available, semantic search disabled", "error", err.Error())
		return nil
	}
	return client
}

// ProvideEmbeddingClient 导入任务必须配置 Embedding 服务
func ProvideEmbeddingClient(cfg *config.Config) (*embedding.Client, error) {
	return embedding.NewClient(&cfg.Embedding)
}

// ProvideSearchEmbedder 组合短语缓存；返回的接口在客户端缺失时为 nil
func ProvideSearchEmbedder(cfg *config.Config, client *embedding.Client, rc *redis.Client) retrieval.Embedder {
	if client == nil {
		return nil
	}
	if rc == nil {
		return client
	}
	return embedding.NewCachedClient(client, redis.NewCache(rc), cfg.Cache.Redis.QueryTTL)
}

// ProvideRetrievalEngine 提供检索引擎
func ProvideRetrievalEngine(cfg *config.Config, repo *postgres.SearchRepository, embedder retrieval.Embedder) *retrieval.Engine {
	return retrieval.NewEngine(repo, embedder, retrieval.Config{
		DefaultLimit:     cfg.Search.DefaultLimit,
		MaxLimit:         cfg.Search.MaxLimit,
		SemanticTotalCap: cfg.Search.SemanticTotalCap,
	})
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client, embedder *embedding.Client) *handler.HealthHandler {
	opts := handler.HealthOptions{
		Postgres:         pg,
		APIKeyConfigured: embedder != nil,
		ServiceName:      cfg.App.Name,
		Version:          cfg.App.Version,
	}
	if rc != nil {
		opts.Redis = rc
	}
	return handler.NewHealthHandler(opts)
}

// ProvideRateLimitMiddleware 提供检索接口限流中间件，Redis 不可用时返回 nil
func ProvideRateLimitMiddleware(cfg *config.Config, rc *redis.Client) gin.HandlerFunc {
	if !cfg.Security.RateLimit.Enabled || rc == nil {
		return nil
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
	}, redis.NewRateLimiter(rc), redis.BuildRateLimitKey)
}

// ProvideNormalizer 提供文本规范化器
func ProvideNormalizer() (*ingest.Normalizer, error) {
	return ingest.NewNormalizer()
}

// ProvideCheckpoint 打开断点日志
func ProvideCheckpoint(cfg *config.Config) (*ingest.Checkpoint, error) {
	if cfg.Ingest.CheckpointFile == "" {
		return nil, errors.New("ingest.checkpoint_file is required")
	}
	return ingest.OpenCheckpoint(cfg.Ingest.CheckpointFile)
}

// ProvideOrchestrator 提供向量化调度器
func ProvideOrchestrator(cfg *config.Config, client *embedding.Client) *ingest.Orchestrator {
	return ingest.NewOrchestrator(client, cfg.Embedding.APIBatchSize, cfg.Ingest.MaxWorkers)
}

// ProvideImporter 提供导入器
func ProvideImporter(cfg *config.Config, norm *ingest.Normalizer, loader *ingest.Loader, cp *ingest.Checkpoint) *ingest.Importer {
	return ingest.NewImporter(ingest.Options{
		DataPath:    cfg.Ingest.DataPath,
		DBBatchSize: cfg.Ingest.DBBatchSize,
	}, norm, loader, cp)
}
