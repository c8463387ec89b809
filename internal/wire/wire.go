//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"poetry-search/internal/application/ingest"
	"poetry-search/internal/application/retrieval"
	"poetry-search/internal/config"
	"poetry-search/internal/domain/repository"
	"poetry-search/internal/infrastructure/persistence/postgres"
	"poetry-search/internal/interfaces/http/handler"
	"poetry-search/internal/interfaces/http/router"
)

// InitializeApp 初始化检索服务（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		ProvideRedisClientOptional,
		postgres.NewSearchRepository,
		ProvideEmbeddingClientOptional,
		ProvideSearchEmbedder,
		ProvideRetrievalEngine,
		wire.Bind(new(handler.SearchService), new(*retrieval.Engine)),
		handler.NewSearchHandler,
		ProvideHealthHandler,
		ProvideRateLimitMiddleware,
		router.New,
	)
	return nil, nil, nil
}

// InitializeImporter 初始化导入任务
func InitializeImporter(ctx context.Context, cfg *config.Config) (*ImporterApp, func(), error) {
	wire.Build(
		IngestRepoSet,
		ProvideEmbeddingClient,
		ProvideOrchestrator,
		ingest.NewLoader,
		ProvideNormalizer,
		ProvideCheckpoint,
		ProvideImporter,
		wire.Struct(new(ImporterApp), "*"),
	)
	return nil, nil, nil
}

// InitializeStats 初始化导入结果校验所需的统计仓储
func InitializeStats(ctx context.Context, cfg *config.Config) (*postgres.StatsRepository, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewStatsRepository,
	)
	return nil, nil, nil
}

// IngestRepoSet 导入所需的仓储与接口绑定
var IngestRepoSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewDynastyRepository,
	postgres.NewAuthorRepository,
	postgres.NewPoemRepository,
	postgres.NewLineRepository,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.DynastyRepository), new(*postgres.DynastyRepository)),
	wire.Bind(new(repository.AuthorRepository), new(*postgres.AuthorRepository)),
	wire.Bind(new(repository.PoemRepository), new(*postgres.PoemRepository)),
	wire.Bind(new(repository.LineRepository), new(*postgres.LineRepository)),
)
