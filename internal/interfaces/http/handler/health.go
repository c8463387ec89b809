// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"poetry-search/internal/domain/repository"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	pg               repository.HealthChecker
	redis            repository.HealthChecker
	apiKeyConfigured bool
	serviceName      string
	version          string
}

// HealthOptions 健康检查处理器参数，Redis 未启用时为 nil
type HealthOptions struct {
	Postgres         repository.HealthChecker
	Redis            repository.HealthChecker
	APIKeyConfigured bool
	ServiceName      string
	Version          string
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{
		pg:               opts.Postgres,
		redis:            opts.Redis,
		apiKeyConfigured: opts.APIKeyConfigured,
		serviceName:      opts.ServiceName,
		version:          opts.Version,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口，数据库不可用时返回 degraded
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:           statusHealthy,
		Database:         statusHealthy,
		APIKeyConfigured: h.apiKeyConfigured,
	}
	if h.pg == nil || h.pg.HealthCheck(ctx) != nil {
		resp.Status = statusDegraded
		resp.Database = statusUnhealthy
	}
	c.JSON(http.StatusOK, resp)
}

// Ready 就绪检查接口，Postgres 必需，Redis 可选
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"postgres": probe(ctx, h.pg, "missing"),
		"redis":    probe(ctx, h.redis, "disabled"),
	}

	ready := checks["postgres"].Status == "ok"
	if checks["redis"].Status == "error" {
		checks["redis"].Status = statusDegraded
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func probe(ctx context.Context, hc repository.HealthChecker, absent string) *readinessCheck {
	if hc == nil {
		return &readinessCheck{Status: absent}
	}
	start := time.Now()
	err := hc.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Index 服务入口说明
// @Summary 服务信息
// @Tags System
// @Produce json
// @Router / [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.serviceName,
		"version": h.version,
		"endpoints": gin.H{
			"health":          "/health",
			"keyword_search":  "/search?keyword=关键词",
			"semantic_search": "/search/semantic?keywords=物象词1,物象词2",
		},
	})
}
