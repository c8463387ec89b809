// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"poetry-search/internal/interfaces/http/dto"
	apperrors "poetry-search/pkg/errors"
	"poetry-search/pkg/logger"
)

// Recovery 捕获 panic，按统一错误格式返回 500，panic 内容只写日志
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			appErr := apperrors.Wrap(fmt.Errorf("panic: %v", r), apperrors.CodeInternalError, "internal server error")
			logger.Error(c.Request.Context(), "panic recovered", appErr.Err,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)

			c.Abort()
			dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{ErrorCode: string(appErr.Code)})
		}()

		c.Next()
	}
}
