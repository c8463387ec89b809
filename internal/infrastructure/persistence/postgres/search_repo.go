package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"poetry-search/internal/domain/entity"
)

// lexicalHitsCTE 全文命中与三元组命中的并集，三元组分支排除已被全文命中的作品
const lexicalHitsCTE = `
WITH fts AS (
	SELECT p.id,
		ts_rank(to_tsvector('chinese', p.title || ' ' || p.full_content),
			websearch_to_tsquery('chinese', @keyword)) AS score
	FROM poems p
	WHERE to_tsvector('chinese', p.title || ' ' || p.full_content)
		@@ websearch_to_tsquery('chinese', @keyword)
),
trgm AS (
	SELECT p.id, similarity(p.title || ' ' || p.full_content, @keyword) AS score
	FROM poems p
	WHERE (p.title || ' ' || p.full_content) % @keyword
		AND NOT EXISTS (SELECT 1 FROM fts WHERE fts.id = p.id)
),
ranked AS (
	SELECT id, MAX(score) AS score
	FROM (
		SELECT id, score FROM fts
		UNION ALL
		SELECT id, score FROM trgm
	) hits
	GROUP BY id
)`

const lexicalPageSQL = lexicalHitsCTE + `
SELECT p.id, p.title, a.name AS author, d.name AS dynasty, p.full_content AS content, r.score
FROM ranked r
JOIN poems p ON p.id = r.id
JOIN authors a ON a.id = p.author_id
JOIN dynasties d ON d.id = a.dynasty_id
ORDER BY r.score DESC, p.id ASC
LIMIT @limit OFFSET @offset
`

const lexicalCountSQL = lexicalHitsCTE + `
SELECT COUNT(*) FROM ranked
`

// semanticPageSQL 每首作品取其句子到查询向量的最小余弦距离
const semanticPageSQL = `
SELECT p.id, p.title, a.name AS author, d.name AS dynasty, p.full_content AS content,
	1 - s.distance AS score
FROM (
	SELECT l.poem_id, MIN(l.embedding <=> CAST(@query AS vector)) AS distance
	FROM lines l
	WHERE l.embedding IS NOT NULL
	GROUP BY l.poem_id
) s
JOIN poems p ON p.id = s.poem_id
JOIN authors a ON a.id = p.author_id
JOIN dynasties d ON d.id = a.dynasty_id
ORDER BY s.distance ASC, p.id ASC
LIMIT @limit OFFSET @offset
`

// SearchRepository 检索查询实现
type SearchRepository struct {
	client *Client
}

// NewSearchRepository 创建检索仓储
func NewSearchRepository(client *Client) *SearchRepository {
	return &SearchRepository{client: client}
}

// Lexical 词法检索，返回当前页结果和去重后的总命中数
func (r *SearchRepository) Lexical(ctx context.Context, keyword string, limit, offset int) ([]*entity.PoemHit, int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.Lexical")
	defer span.End()

	db := getDB(ctx, r.client.db)
	args := map[string]interface{}{
		"keyword": keyword,
		"limit":   limit,
		"offset":  offset,
	}

	var total int64
	if err := db.Raw(lexicalCountSQL, args).Scan(&total).Error; err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to count lexical hits: %w", err)
	}
	if total == 0 {
		return []*entity.PoemHit{}, 0, nil
	}

	hits := make([]*entity.PoemHit, 0, limit)
	if err := db.Raw(lexicalPageSQL, args).Scan(&hits).Error; err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to query lexical hits: %w", err)
	}
	return hits, total, nil
}

// Semantic 语义检索，Score 为 1 - 最小余弦距离
func (r *SearchRepository) Semantic(ctx context.Context, query []float32, limit, offset int) ([]*entity.PoemHit, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.Semantic")
	defer span.End()

	db := getDB(ctx, r.client.db)
	args := map[string]interface{}{
		"query":  pgvector.NewVector(query),
		"limit":  limit,
		"offset": offset,
	}

	hits := make([]*entity.PoemHit, 0, limit)
	if err := db.Raw(semanticPageSQL, args).Scan(&hits).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query semantic hits: %w", err)
	}
	return hits, nil
}

// CountEmbeddedPoems 统计拥有向量句子的作品数
func (r *SearchRepository) CountEmbeddedPoems(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.SearchRepository.CountEmbeddedPoems")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var total int64
	if err := db.Model(&entity.Line{}).
		Where("embedding IS NOT NULL").
		Distinct("poem_id").
		Count(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count embedded poems: %w", err)
	}
	return total, nil
}
