package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"poetry-search/internal/application/retrieval"
	"poetry-search/internal/interfaces/http/dto"
	apperrors "poetry-search/pkg/errors"
)

// SearchService 检索服务接口
type SearchService interface {
	Lexical(ctx context.Context, q retrieval.LexicalQuery) (*retrieval.SearchOutput, error)
	Semantic(ctx context.Context, q retrieval.SemanticQuery) (*retrieval.SearchOutput, error)
}

// SearchHandler 检索处理器
type SearchHandler struct {
	search SearchService
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(search SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Lexical 关键词检索
// @Summary 关键词检索
// @Description 全文检索与模糊匹配的并集，按相关度降序
// @Tags Search
// @Produce json
// @Param keyword query string true "检索关键词"
// @Param limit query int false "返回数量 (1-100)"
// @Param offset query int false "偏移量"
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /search [get]
func (h *SearchHandler) Lexical(c *gin.Context) {
	req, err := dto.BindLexicalSearch(c)
	if err != nil {
		writeError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid search parameters"))
		return
	}

	out, err := h.search.Lexical(c.Request.Context(), retrieval.LexicalQuery{
		Keyword: req.Keyword,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSearchResponse(out))
}

// Semantic 语义检索
// @Summary 语义检索
// @Description 以多个物象词的平均向量检索意境相近的作品
// @Tags Search
// @Produce json
// @Param keywords query string true "逗号分隔的物象词"
// @Param limit query int false "返回数量 (1-100)"
// @Param offset query int false "偏移量"
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /search/semantic [get]
func (h *SearchHandler) Semantic(c *gin.Context) {
	req, err := dto.BindSemanticSearch(c)
	if err != nil {
		writeError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid search parameters"))
		return
	}

	out, err := h.search.Semantic(c.Request.Context(), retrieval.SemanticQuery{
		Phrases: req.Keywords,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSearchResponse(out))
}
