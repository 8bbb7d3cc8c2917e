package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WenFra005/pipeline-API/config"
	"github.com/WenFra005/pipeline-API/models"
	"github.com/WenFra005/pipeline-API/pipeline"
	"github.com/WenFra005/pipeline-API/routes"
	"github.com/WenFra005/pipeline-API/scheduler"
	"github.com/WenFra005/pipeline-API/services"

	"github.com/gin-gonic/gin"
)

// shutdownTimeout bounds how long shutdown waits for an in-flight
// pipeline run; the extractor's HTTP timeout fits inside it.
const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("==============================================")
	log.Println("  Currency Quote Pipeline - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database connection
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	// Run database migrations
	log.Println("Running database migrations...")
	if err := models.MigrateQuoteModels(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := models.MigrateAdminModels(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database migrations completed successfully")

	// Seed default admin user
	if err := models.SeedDefaultAdminUser(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Printf("Warning: Could not seed admin user: %v", err)
	}

	// Build the pipeline stages
	extractor := pipeline.NewAwesomeAPIExtractor(cfg.CurrencyPair, cfg.AwesomeAPIToken)
	transformer := pipeline.NewTransformer(cfg.CurrencyPair, cfg.Timezone)
	loader := pipeline.NewGormLoader(db)
	pipe := pipeline.New(extractor, transformer, loader)

	// Realtime feed receives every persisted quote
	realtime := services.NewRealtimeQuoteService()
	realtime.Start()
	pipe.SetPublisher(realtime)

	// Operating window and scheduler
	startHour, startMinute, err := config.ParseTimeOfDay(cfg.WindowStart)
	if err != nil {
		log.Fatalf("Invalid WINDOW_START: %v", err)
	}
	endHour, endMinute, err := config.ParseTimeOfDay(cfg.WindowEnd)
	if err != nil {
		log.Fatalf("Invalid WINDOW_END: %v", err)
	}

	window := scheduler.NewWeekdayWindow(cfg.Timezone, startHour, startMinute, endHour, endMinute)
	sched := scheduler.NewScheduler(window, pipe, scheduler.Options{
		PollInterval:    cfg.PollInterval,
		Cooldown:        cfg.Cooldown,
		FailureCooldown: cfg.FailureCooldown,
	})

	maintenance := scheduler.NewMaintenanceScheduler(db, cfg.Timezone, cfg.RetentionDays)

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	setupHealthEndpoints(router)
	routes.SetupRoutes(router, db, sched, realtime, cfg.JWTSecret)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Scheduler loop runs until the shutdown signal cancels its context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	maintenance.Start()

	gracefulShutdown(ctx, server, sched, maintenance, realtime)
}

// setupHealthEndpoints sets up liveness and readiness probes
func setupHealthEndpoints(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Currency Quote Pipeline API",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks the database connection
	router.GET("/ready", func(c *gin.Context) {
		sqlDB, err := config.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown waits for the termination signal, then stops the
// scheduler, drains the HTTP server and closes the database.
func gracefulShutdown(ctx context.Context, server *http.Server, sched *scheduler.Scheduler, maintenance *scheduler.MaintenanceScheduler, realtime *services.RealtimeQuoteService) {
	<-ctx.Done()
	log.Println("Received shutdown signal, shutting down gracefully...")

	// Stop background work first. The scheduler loop may have a run in
	// flight; wait for it to finish before tearing anything down.
	sched.Stop()
	select {
	case <-sched.Done():
	case <-time.After(shutdownTimeout):
		log.Println("Timed out waiting for scheduler to stop")
	}
	maintenance.Stop()
	realtime.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	log.Println("Server shutdown completed")
}
