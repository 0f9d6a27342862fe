package api

import (
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"purser/internal/api/handlers"
	"purser/internal/metrics"
	"purser/internal/services"
)

func SetupRouter(corsOrigins []string, watchlist *services.WatchlistService, worker *services.CheckWorker, digest *services.DigestService) *gin.Engine {
	router := gin.Default()

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if len(corsOrigins) > 0 {
		config.AllowOrigins = corsOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))
	router.Use(requestMetrics())

	itemHandler := handlers.NewItemHandler(watchlist, worker)
	checkHandler := handlers.NewCheckHandler(watchlist, worker, digest)

	// Watchlist view and item submission
	router.GET("/", itemHandler.GetWatchlist)
	router.POST("/items", itemHandler.AddItem)
	router.POST("/check/now", checkHandler.CheckNow)

	// API routes
	api := router.Group("/api")
	{
		items := api.Group("/items")
		{
			items.GET("", itemHandler.GetWatchlist)
			items.GET("/:id", itemHandler.GetItem)
			items.PUT("/:id", itemHandler.UpdateItem)
			items.DELETE("/:id", itemHandler.DeleteItem)
			items.GET("/:id/prices", itemHandler.GetPriceHistory)
			items.POST("/:id/pause", itemHandler.PauseItem)
			items.POST("/:id/resume", itemHandler.ResumeItem)
			items.PUT("/:id/target", itemHandler.SetTarget)
			items.POST("/:id/target/reset", itemHandler.ResetTarget)
			items.POST("/:id/check", checkHandler.CheckItem)
		}

		checks := api.Group("/checks")
		{
			checks.GET("/status", checkHandler.GetCheckStatus)
		}

		api.GET("/digest/preview", checkHandler.PreviewDigest)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics records request counts and latency per route.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
