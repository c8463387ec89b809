package repository

import (
	"context"

	"poetry-search/internal/domain/entity"
)

// SearchRepository 检索查询接口
type SearchRepository interface {
	// Lexical 全文检索与三元组相似度检索的并集，按分数降序、ID 升序
	Lexical(ctx context.Context, keyword string, limit, offset int) ([]*entity.PoemHit, int64, error)

	// Semantic 以句子向量的最小余弦距离为每首作品打分，距离升序
	Semantic(ctx context.Context, query []float32, limit, offset int) ([]*entity.PoemHit, error)

	// CountEmbeddedPoems 统计至少有一条向量句子的作品数
	CountEmbeddedPoems(ctx context.Context) (int64, error)
}

// StatsRepository 导入统计接口
type StatsRepository interface {
	// Collect 汇总各表规模、朝代分布以及重复导入的作品组
	Collect(ctx context.Context, duplicateLimit int) (*entity.ImportStats, error)
}
