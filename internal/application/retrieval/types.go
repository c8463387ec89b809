package retrieval

import "poetry-search/internal/domain/entity"

// LexicalQuery 关键词检索参数，Limit 为 0 时使用默认值
type LexicalQuery struct {
	Keyword string
	Limit   int
	Offset  int
}

// SemanticQuery 语义检索参数
type SemanticQuery struct {
	Phrases []string
	Limit   int
	Offset  int
}

// SearchOutput 检索结果
type SearchOutput struct {
	Total       int64
	Results     []*entity.PoemHit
	QueryTimeMs float64
}

// Config 检索参数边界
type Config struct {
	DefaultLimit     int
	MaxLimit         int
	SemanticTotalCap int
}

const (
	defaultLimit            = 10
	defaultMaxLimit         = 100
	defaultSemanticTotalCap = 1000
)
