package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BartekTra/portfolioCreator-sub000/internal/api/middleware"
	"github.com/BartekTra/portfolioCreator-sub000/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎并挂载全局中间件。
// 关联 ID 在日志中间件之前注入，保证每条访问日志都带 correlation_id。
func NewRouter(logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
