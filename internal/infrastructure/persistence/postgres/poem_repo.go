package postgres

import (
	"context"
	"fmt"

	"poetry-search/internal/domain/entity"
)

// lineInsertBatch 单条 INSERT 的最大行数
const lineInsertBatch = 500

// PoemRepository 作品仓储实现
type PoemRepository struct {
	client *Client
}

// NewPoemRepository 创建作品仓储
func NewPoemRepository(client *Client) *PoemRepository {
	return &PoemRepository{client: client}
}

// CreateBatch 批量插入作品，GORM 通过 RETURNING id 按顺序回填 ID
func (r *PoemRepository) CreateBatch(ctx context.Context, poems []*entity.Poem) error {
	ctx, span := tracer.Start(ctx, "postgres.PoemRepository.CreateBatch")
	defer span.End()

	if len(poems) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(&poems).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create poems: %w", err)
	}
	return nil
}

// LineRepository 句子仓储实现
type LineRepository struct {
	client *Client
}

// NewLineRepository 创建句子仓储
func NewLineRepository(client *Client) *LineRepository {
	return &LineRepository{client: client}
}

// CreateBatch 批量插入句子及其向量
func (r *LineRepository) CreateBatch(ctx context.Context, lines []*entity.Line) error {
	ctx, span := tracer.Start(ctx, "postgres.LineRepository.CreateBatch")
	defer span.End()

	if len(lines) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(&lines, lineInsertBatch).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create lines: %w", err)
	}
	return nil
}
