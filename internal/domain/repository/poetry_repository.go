package repository

import (
	"context"

	"poetry-search/internal/domain/entity"
)

// DynastyRepository 朝代仓储接口
type DynastyRepository interface {
	// EnsureByNames 不存在则插入，已存在则跳过，返回全部名称对应的 ID
	EnsureByNames(ctx context.Context, names []string) (map[string]int64, error)
}

// AuthorRepository 作者仓储接口
type AuthorRepository interface {
	// EnsureAuthors 按 (name, dynasty_id) 插入或跳过，返回全部键对应的 ID
	EnsureAuthors(ctx context.Context, keys []entity.AuthorKey) (map[entity.AuthorKey]int64, error)
}

// PoemRepository 作品仓储接口
type PoemRepository interface {
	// CreateBatch 批量插入并按插入顺序回填 ID
	CreateBatch(ctx context.Context, poems []*entity.Poem) error
}

// LineRepository 句子仓储接口
type LineRepository interface {
	// CreateBatch 批量插入带向量的句子
	CreateBatch(ctx context.Context, lines []*entity.Line) error
}
