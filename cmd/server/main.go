package main

import (
	"collab-canvas/internal/batch"
	"collab-canvas/internal/config"
	"collab-canvas/internal/db"
	"collab-canvas/internal/hub"
	"collab-canvas/internal/middleware"
	"collab-canvas/internal/presence"
	"collab-canvas/internal/shape"
	"collab-canvas/internal/softlock"
	"collab-canvas/internal/worker"
	"collab-canvas/internal/ws"
	"collab-canvas/redis"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	config.LoadConfig()

	if level, err := logrus.ParseLevel(getLogLevel()); err == nil {
		logrus.SetLevel(level)
	}

	// Initialize Redis (soft locks, presence and the snapshot cache
	// degrade gracefully without it)
	redis.InitRedis()

	// Shape storage
	var shapeRepo shape.Repository
	if config.AppConfig.StorageType == "memory" {
		logrus.WithField("storageType", "in-memory").Info("Use storage")
		shapeRepo = shape.NewMemoryRepository()
	} else {
		logrus.WithField("storageType", "postgres").Info("Use storage")
		db.ConnectDb()
		defer db.CloseDb()
		db.Migrate()
		shapeRepo = shape.NewRepository(db.AppDb)
	}

	// Ephemeral stores
	var lockStore softlock.Store
	var presenceStore presence.Store
	if redis.Available() {
		lockStore = softlock.NewRedisStore(redis.RedisClient, config.AppConfig.LockTTL)
		presenceStore = presence.NewRedisStore(redis.RedisClient)
	} else {
		lockStore = softlock.NewMemoryStore()
		presenceStore = presence.NewMemoryStore()
	}

	// Shared infrastructure
	fanout := hub.New()
	pool := worker.NewWorkerPool(4)
	defer pool.Shutdown()
	cache := redis.NewCache(redis.RedisClient)

	// Services
	shapeService := shape.NewService(shapeRepo, fanout, cache, pool)
	lockService := softlock.NewService(lockStore, fanout, config.AppConfig.LockTTL)
	presenceService := presence.NewService(presenceStore, fanout, presence.FlushInterval)
	batchExecutor := batch.NewExecutor(shapeService)

	// Handlers
	shapeHandler := shape.NewHandler(shapeService)
	lockHandler := softlock.NewHandler(lockService)
	presenceHandler := presence.NewHandler(presenceService)
	batchHandler := batch.NewHandler(batchExecutor)
	gateway := ws.NewGateway(fanout, shapeService, lockService, presenceService)

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	authMW := &middleware.Auth{InternalSecret: config.AppConfig.InternalSecret}

	canvases := router.Group("/canvases/:id", authMW.AuthMiddleWare())
	{
		canvases.GET("/shapes", shapeHandler.List)
		canvases.POST("/shapes", shapeHandler.Create)
		canvases.PATCH("/shapes/:shapeId", shapeHandler.Update)
		canvases.DELETE("/shapes/:shapeId", shapeHandler.Delete)
		canvases.POST("/shapes/batch", batchHandler.Execute)

		canvases.GET("/locks", lockHandler.List)
		canvases.POST("/locks/:shapeId", lockHandler.Acquire)
		canvases.DELETE("/locks/:shapeId", lockHandler.Release)

		canvases.GET("/presence", presenceHandler.List)
		canvases.POST("/presence", presenceHandler.Join)
		canvases.PUT("/presence/cursor", presenceHandler.UpdateCursor)
		canvases.DELETE("/presence", presenceHandler.Leave)

		canvases.GET("/ws", gateway.HandleConnection)
	}

	// internal use routes (canvas lifecycle manager)
	router.DELETE(
		"/internal/canvases/:id/shapes",
		authMW.InternalAuthMiddleware(),
		shapeHandler.DeleteAll,
	)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		logrus.WithField("port", serverPort).Info("Server listening")
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithField("error", err).Warn("Server shutdown error")
	}

	<-ctx.Done()
	logrus.Info("Server shutdown complete")
}

func getLogLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}
