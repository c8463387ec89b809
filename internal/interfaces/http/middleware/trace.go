// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"poetry-search/pkg/logger"
	"poetry-search/pkg/tracer"
)

// Trace 返回 otelgin 中间件以及把 trace_id 写入日志上下文的扩展，需按顺序注册
func Trace(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
			return !isProbePath(r.URL.Path)
		})),
		traceContext,
	}
}

func traceContext(c *gin.Context) {
	if traceID := tracer.TraceID(c.Request.Context()); traceID != "" {
		spanID := trace.SpanFromContext(c.Request.Context()).SpanContext().SpanID().String()

		c.Set("trace_id", traceID)
		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-ID", traceID)
	}
	c.Next()
}

// isProbePath 探针请求不生成 span
func isProbePath(path string) bool {
	switch path {
	case "/health", "/ready", "/live", "/metrics":
		return true
	}
	return false
}
