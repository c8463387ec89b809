package postgres

import (
	"context"
	"fmt"

	"poetry-search/internal/domain/entity"
)

// StatsRepository 导入统计实现
type StatsRepository struct {
	client *Client
}

// NewStatsRepository 创建统计仓储
func NewStatsRepository(client *Client) *StatsRepository {
	return &StatsRepository{client: client}
}

// Collect 汇总导入结果
func (r *StatsRepository) Collect(ctx context.Context, duplicateLimit int) (*entity.ImportStats, error) {
	ctx, span := tracer.Start(ctx, "postgres.StatsRepository.Collect")
	defer span.End()

	db := getDB(ctx, r.client.db)
	stats := &entity.ImportStats{}

	counts := []struct {
		model interface{}
		dest  *int64
		where string
	}{
		{&entity.Dynasty{}, &stats.Dynasties, ""},
		{&entity.Author{}, &stats.Authors, ""},
		{&entity.Poem{}, &stats.Poems, ""},
		{&entity.Line{}, &stats.Lines, ""},
		{&entity.Line{}, &stats.LinesEmbedded, "embedding IS NOT NULL"},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where)
		}
		if err := q.Count(c.dest).Error; err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	err := db.Raw(`
		SELECT d.name AS dynasty, COUNT(p.id) AS poems
		FROM dynasties d
		JOIN authors a ON a.dynasty_id = d.id
		JOIN poems p ON p.author_id = a.id
		GROUP BY d.name
		ORDER BY poems DESC, d.name ASC
	`).Scan(&stats.PoemsByDynasty).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count poems by dynasty: %w", err)
	}

	err = db.Raw(`
		SELECT title, author_id, COUNT(*) AS copies
		FROM poems
		GROUP BY title, author_id, full_content
		HAVING COUNT(*) > 1
		ORDER BY copies DESC, title ASC
		LIMIT ?
	`, duplicateLimit).Scan(&stats.DuplicateGroups).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find duplicate poems: %w", err)
	}

	return stats, nil
}
