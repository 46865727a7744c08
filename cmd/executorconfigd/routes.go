package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kandev/executorconfig/internal/common/config"
	"github.com/kandev/executorconfig/internal/common/httpmw"
	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/common/metrics"
	"github.com/kandev/executorconfig/internal/executorconfig/controller"
	"github.com/kandev/executorconfig/internal/executorconfig/handlers"
)

func newRouter(cfg *config.Config, a *app, log *logger.Logger) *gin.Engine {
	if logger.DetectFormat() == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(httpmw.RequestID())
	router.Use(httpmw.OtelTracing("executorconfigd"))
	router.Use(httpmw.RequestLogger(log, "executorconfigd"))

	a.gateway.Mount(router)
	handlers.RegisterRoutes(router, a.gateway.Dispatcher, controller.NewController(a.service), log)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler(a.gatherer)))
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "executorconfig",
			"executors": a.service.Catalog().Len(),
			"event_bus": a.eventBus.IsConnected(),
		})
	})
	return router
}

// corsMiddleware returns a CORS middleware for HTTP and WebSocket connections.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version, Sec-WebSocket-Protocol")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
