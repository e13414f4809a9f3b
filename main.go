package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickup-service/controllers"
	"pickup-service/database"
	"pickup-service/events"
	"pickup-service/kafka"
	"pickup-service/logger"
	"pickup-service/middleware"
	"pickup-service/models"
	"pickup-service/repository"
	"pickup-service/routes"
	"pickup-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()
	log := logger.Log

	// --- Storage ---
	db, err := database.ConnectPostgres(log, &models.DeviceStock{}, &models.PickupRecord{})
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer database.Close(db)

	stockRepo := repository.NewGormStockRepository(db)
	pickupRepo := repository.NewGormPickupRepository(db)

	// --- Hierarchy resolution (+ optional Redis cache) ---
	var hierarchy services.HierarchyResolver = services.NewHierarchyClient(cfg.UserServiceURL)
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, hierarchy cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			hierarchy = services.NewCachedHierarchyResolver(hierarchy, rdb, cfg.HierarchyCacheTTL)
		}
	}

	// --- Event fan-out ---
	hub := events.NewHub(log)

	var producer kafka.ProducerAPI
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewProducer(cfg.KafkaBrokers, cfg.PickupEventsTopic)
		defer p.Close()
		producer = p
		log.Info("Kafka producer enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.PickupEventsTopic),
		)
	}

	// --- Lifecycle engine + sweeper ---
	pickupService := services.NewPickupService(pickupRepo, stockRepo, hierarchy, hub, producer, cfg.SLAWindow, log)
	sweeper := services.NewSweeper(pickupService, cfg.SweepInterval, log)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper.Start(sweepCtx)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(middleware.RateLimitMiddleware())

	pickupController := controllers.NewPickupController(pickupService)
	stockController := controllers.NewStockController(stockRepo, sweeper)
	eventsController := controllers.NewEventsController(hub, hierarchy)
	routes.RegisterRoutes(r, pickupController, stockController, eventsController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Pickup Service starting",
			zap.String("port", cfg.Port),
			zap.Duration("sla_window", cfg.SLAWindow),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Pickup Service...")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Pickup Service stopped gracefully")
}
