package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm/clause"

	"poetry-search/internal/domain/entity"
)

// DynastyRepository 朝代仓储实现
type DynastyRepository struct {
	client *Client
}

// NewDynastyRepository 创建朝代仓储
func NewDynastyRepository(client *Client) *DynastyRepository {
	return &DynastyRepository{client: client}
}

// EnsureByNames 插入缺失的朝代并重新读取 ID 映射
func (r *DynastyRepository) EnsureByNames(ctx context.Context, names []string) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.DynastyRepository.EnsureByNames")
	defer span.End()

	ids := make(map[string]int64, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	db := getDB(ctx, r.client.db)

	rows := make([]entity.Dynasty, 0, len(names))
	for _, name := range names {
		rows = append(rows, entity.Dynasty{Name: name})
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to insert dynasties: %w", err)
	}

	var found []entity.Dynasty
	if err := db.Where("name = ANY(?)", pq.Array(names)).Find(&found).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read dynasty ids: %w", err)
	}
	for _, d := range found {
		ids[d.Name] = d.ID
	}
	if len(ids) != len(names) {
		return nil, fmt.Errorf("failed to resolve dynasty ids: want %d, got %d", len(names), len(ids))
	}
	return ids, nil
}
