package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/glancehq/glance-backend/internal/handlers"
	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/middleware"
)

type RouterConfig struct {
	Log               *logger.Logger
	SuggestionHandler *handlers.SuggestionHandler
	ThreadHandler     *handlers.ThreadHandler
	CycleHandler      *handlers.CycleHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestLog(cfg.Log))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/suggestion/latest", cfg.SuggestionHandler.GetLatest)
		api.POST("/suggestion/response", cfg.SuggestionHandler.PostResponse)
		api.POST("/summary/manual", cfg.SuggestionHandler.PostManualSummary)

		api.GET("/threads", cfg.ThreadHandler.List)
		api.GET("/threads/search", cfg.ThreadHandler.Search)
		api.DELETE("/threads", cfg.ThreadHandler.Clear)

		api.GET("/cycles", cfg.CycleHandler.ListRecent)
	}

	return router
}
