package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm/clause"

	"poetry-search/internal/domain/entity"
)

// AuthorRepository 作者仓储实现
type AuthorRepository struct {
	client *Client
}

// NewAuthorRepository 创建作者仓储
func NewAuthorRepository(client *Client) *AuthorRepository {
	return &AuthorRepository{client: client}
}

// EnsureAuthors 按 uq_author_dynasty 插入或跳过，然后重新读取 ID 映射
func (r *AuthorRepository) EnsureAuthors(ctx context.Context, keys []entity.AuthorKey) (map[entity.AuthorKey]int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.AuthorRepository.EnsureAuthors")
	defer span.End()

	ids := make(map[entity.AuthorKey]int64, len(keys))
	if len(keys) == 0 {
		return ids, nil
	}

	db := getDB(ctx, r.client.db)

	rows := make([]entity.Author, 0, len(keys))
	names := make([]string, 0, len(keys))
	dynastyIDs := make([]int64, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, entity.Author{Name: k.Name, DynastyID: k.DynastyID})
		names = append(names, k.Name)
		dynastyIDs = append(dynastyIDs, k.DynastyID)
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "dynasty_id"}},
		DoNothing: true,
	}).Create(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to insert authors: %w", err)
	}

	var found []entity.Author
	err := db.Raw(`
		SELECT a.id, a.name, a.dynasty_id
		FROM authors a
		JOIN unnest(?::text[], ?::bigint[]) AS k(name, dynasty_id)
			ON a.name = k.name AND a.dynasty_id = k.dynasty_id
	`, pq.Array(names), pq.Array(dynastyIDs)).Scan(&found).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read author ids: %w", err)
	}
	for i := range found {
		ids[found[i].Key()] = found[i].ID
	}
	if len(ids) != len(keys) {
		return nil, fmt.Errorf("failed to resolve author ids: want %d, got %d", len(keys), len(ids))
	}
	return ids, nil
}
