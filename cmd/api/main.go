package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"

	"github.com/ruthikN/foodie-die/config"
	"github.com/ruthikN/foodie-die/internal/api"
	"github.com/ruthikN/foodie-die/internal/database"
	"github.com/ruthikN/foodie-die/internal/middleware"
	"github.com/ruthikN/foodie-die/internal/router"
	"github.com/ruthikN/foodie-die/internal/server"
	"github.com/ruthikN/foodie-die/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db.Gorm); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	// Redis is optional: without it the nutrient cache and request rate
	// limiting are disabled, the pipeline itself still works.
	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, caching and rate limiting disabled")
		redisClient = nil
	}

	vision, err := service.NewVisionService(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize vision service")
	}
	nutrition := service.NewNutritionService(cfg, redisClient)
	store := service.NewRecordStore(db.Gorm)

	// The image archive is best-effort infrastructure; missing AWS
	// credentials only disable it.
	var archive service.IImageArchive
	if s3Config, err := config.NewS3Config(context.Background()); err != nil {
		log.WithError(err).Warn("S3 unavailable, image archival disabled")
	} else {
		archive = service.NewImageArchive(s3Config)
	}

	analysis := service.NewAnalysisService(vision, nutrition, store, archive, cfg.ResolveConcurrency, cfg.ResolveTimeout)
	handler := api.NewAnalysisHandler(analysis, store)

	var rateLimiter *middleware.RateLimiter
	if redisClient != nil {
		rateLimiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Window:    time.Minute,
			Limit:     30,
			KeyPrefix: "ratelimit:analyze",
		})
	}

	engine := router.SetupRouter(handler, rateLimiter, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return db.HealthCheck(ctx)
	})

	srv := server.New(cfg, engine)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.WithError(err).Fatal("server error")
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server shutdown error")
	}
	log.Info("server stopped")
}
