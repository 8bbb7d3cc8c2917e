package routes

import (
	"github.com/WenFra005/pipeline-API/controllers"
	"github.com/WenFra005/pipeline-API/middleware"
	"github.com/WenFra005/pipeline-API/scheduler"
	"github.com/WenFra005/pipeline-API/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, sched *scheduler.Scheduler, realtime *services.RealtimeQuoteService, jwtSecret string) {
	// Initialize controllers
	quoteController := controllers.NewQuoteController(db)
	pipelineController := controllers.NewPipelineController(sched)
	authController := controllers.NewAuthController(db, jwtSecret)

	// Public quote endpoints
	router.GET("/cotacoes", quoteController.GetQuotes)
	router.GET("/cotacoes/latest", quoteController.GetLatestQuote)
	router.GET("/cotacoes/stats", quoteController.GetQuoteStats)

	// Realtime quote feed
	router.GET("/ws/quotes", func(c *gin.Context) {
		realtime.HandleWebSocket(c.Writer, c.Request)
	})

	// API v1 group
	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.Use(middleware.LoginRateLimitMiddleware())
		{
			auth.POST("/login", authController.Login)
		}

		// Admin pipeline control
		pipeline := api.Group("/pipeline")
		pipeline.Use(middleware.JWTAuthMiddleware(jwtSecret))
		{
			pipeline.GET("/status", pipelineController.GetStatus)
			pipeline.POST("/run", pipelineController.TriggerRun)
		}
	}
}
