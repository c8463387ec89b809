// Package router 提供 HTTP 路由配置
package router

import (
	"poetry-search/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterSearchRoutes 注册检索路由
func RegisterSearchRoutes(group *gin.RouterGroup, searchHandler *handler.SearchHandler) {
	group.GET("", searchHandler.Lexical)
	group.GET("/semantic", searchHandler.Semantic)
}
