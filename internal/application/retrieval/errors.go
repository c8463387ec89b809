package retrieval

import "errors"

var (
	// ErrInvalidQuery 关键词为空或分页参数越界
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrSemanticDisabled 未配置 Embedding 服务，语义检索不可用
	ErrSemanticDisabled = errors.New("semantic search is disabled")

	// ErrEmbeddingUnavailable 所有短语都没有取到向量
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
