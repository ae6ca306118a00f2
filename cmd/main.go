package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helplink/internal/clients"
	"helplink/internal/config"
	"helplink/internal/handlers"
	"helplink/internal/logging"
	"helplink/internal/middleware"
	"helplink/internal/mockdata"
	"helplink/internal/repository"
	"helplink/internal/service"
	"helplink/internal/worker"
	"helplink/pkg/database"
	"helplink/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	logger, err := logging.New(cfg.App.Debug, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}
	logger.Info("HelpLink dashboard backend starting", zap.String("source", cfg.Source.Kind))

	mockOpts := mockdata.Options{
		Seed:          cfg.Mock.Seed,
		Users:         cfg.Mock.Users,
		Institutions:  cfg.Mock.Institutions,
		Categories:    cfg.Mock.Categories,
		Items:         cfg.Mock.Items,
		Donations:     cfg.Mock.Donations,
		DonationItems: cfg.Mock.DonationItems,
		Impacts:       cfg.Mock.Impacts,
	}

	// Data source
	var (
		db         *gorm.DB
		source     repository.SnapshotSource
		exportRepo repository.ExportRepository
	)
	switch cfg.Source.Kind {
	case config.SourceDB:
		db, err = database.Connect(cfg.DB, cfg.App.Debug, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}()

		if cfg.Source.AutoMigrate {
			if err := database.Migrate(db, logger); err != nil {
				logger.Fatal("failed to migrate database", zap.Error(err))
			}
		}

		donationRepo := repository.NewDonationRepository(db, logger)
		if cfg.Source.SeedOnStart {
			seedDatabase(donationRepo, mockOpts, logger)
		}
		source = donationRepo
		exportRepo = repository.NewExportRepository(db)
	case config.SourceMock:
		source = mockdata.NewSource(mockOpts)
	default:
		logger.Fatal("unknown data source", zap.String("source", cfg.Source.Kind))
	}

	// Redis is optional: without it every request reads the source.
	dashboardCfg := service.DashboardConfig{
		CacheTTL:          cfg.Cache.SnapshotTTL,
		CompletedStatuses: cfg.Pipeline.CompletedStatuses,
		KnownStatuses:     cfg.Pipeline.KnownStatuses,
	}
	var cacheRepo repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := redis.Connect(cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient)
			dashboardCfg.CacheStats = func(ctx context.Context) (map[string]string, error) {
				return redis.GetStats(ctx, redisClient)
			}
		}
	}

	classifier := clients.NewClassifierClient(clients.ClassifierConfig{
		URL:     cfg.Classifier.URL,
		APIKey:  cfg.Classifier.APIKey,
		Timeout: cfg.Classifier.Timeout,
	})

	// Services
	dashboardService := service.NewDashboardService(source, cacheRepo, classifier, dashboardCfg, logger)
	exportService := service.NewExportService(dashboardService, exportRepo, cfg.Export.OutputDir, cfg.Export.Retention, logger)

	// Background workers
	scheduler := worker.NewScheduler(logger)
	if cfg.Workers.SnapshotEnabled {
		scheduler.AddWorker(worker.NewSnapshotWorker(dashboardService, cfg.Workers.SnapshotInterval, logger))
	}
	go scheduler.Start()
	defer scheduler.Stop()

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting (production only)
	if !cfg.App.Debug {
		limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		r.Use(middleware.RateLimitMiddleware(limiter, logger))
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond), zap.Int("burst", cfg.RateLimit.Burst))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	handlers.NewDashboardHandler(dashboardService, exportService, logger).RegisterRoutes(api)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("api", "http://localhost:"+cfg.App.Port+"/api/v1"))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited properly")
}

// seedDatabase fills an empty store with generated rows.
func seedDatabase(repo repository.DonationRepository, opts mockdata.Options, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := repo.Counts(ctx)
	if err != nil {
		logger.Warn("skipping seed, cannot count rows", zap.Error(err))
		return
	}
	for table, n := range counts {
		if n > 0 {
			logger.Info("skipping seed, store is not empty", zap.String("table", table), zap.Int64("rows", n))
			return
		}
	}

	if err := repo.Seed(ctx, mockdata.Generate(opts)); err != nil {
		logger.Error("failed to seed database", zap.Error(err))
		return
	}
	logger.Info("database seeded with generated rows")
}
