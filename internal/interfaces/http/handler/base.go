// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"poetry-search/internal/application/retrieval"
	"poetry-search/internal/interfaces/http/dto"
	apperrors "poetry-search/pkg/errors"
	"poetry-search/pkg/logger"
)

// toAppError 将检索层错误映射为带 HTTP 状态的应用错误
func toAppError(err error) *apperrors.AppError {
	switch {
	case apperrors.IsAppError(err):
		return apperrors.AsAppError(err)
	case errors.Is(err, retrieval.ErrInvalidQuery):
		return apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid search parameters")
	case errors.Is(err, retrieval.ErrSemanticDisabled):
		return apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "semantic search is not configured")
	case errors.Is(err, retrieval.ErrEmbeddingUnavailable):
		return apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "failed to embed search phrases")
	default:
		return apperrors.Wrap(err, apperrors.CodeRetrievalFailed, "search failed")
	}
}

// writeError 输出错误响应，5xx 记录错误日志
func writeError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), appErr.Message, err, "path", c.FullPath())
	}

	detail := &dto.ErrorDetail{ErrorCode: string(appErr.Code)}
	if appErr.HTTPStatus < 500 && appErr.Err != nil {
		detail.Details = appErr.Err.Error()
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, detail)
}

// NotFound 未注册的路由统一返回 404 错误格式
func NotFound(c *gin.Context) {
	writeError(c, apperrors.New(apperrors.CodeNotFound, "resource not found"))
}
