package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/Dilaxno/photomark-backend/internal/config"
	"github.com/Dilaxno/photomark-backend/internal/database"
	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/handler"
	"github.com/Dilaxno/photomark-backend/internal/middleware"
	"github.com/Dilaxno/photomark-backend/internal/queue"
	"github.com/Dilaxno/photomark-backend/internal/repository"
	"github.com/Dilaxno/photomark-backend/internal/router"
	"github.com/Dilaxno/photomark-backend/internal/service"
	"github.com/Dilaxno/photomark-backend/internal/validator"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: open failed: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("database: migrate failed: %v", err)
	}

	// Redis is optional; without it rate limiting and caching degrade to
	// pass-through middleware.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, rate limiting and caching disabled")
	}

	sessionRepo := repository.NewMiniSessionRepo(db)
	dateRepo := repository.NewSessionDateRepo(db)
	slotRepo := repository.NewSlotRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	waitlistRepo := repository.NewWaitlistRepo(db)

	publisher := service.NewPublisher(cfg.AMQPURL)
	defaultTTL := time.Duration(cfg.HoldTTLMin) * time.Minute

	coordinator := engine.NewCoordinator(waitlistRepo, sessionRepo, slotRepo, publisher, defaultTTL, nil)
	holds := engine.NewHoldManager(slotRepo, sessionRepo, coordinator, defaultTTL, nil)
	confirmer := engine.NewConfirmer(slotRepo, bookingRepo, sessionRepo, coordinator, publisher, nil)

	sweeper := engine.NewSweeper(slotRepo, coordinator, cfg.SweepBatch, nil)
	sweeper.Start(cfg.SweepEvery)
	defer sweeper.Stop()

	go func() {
		if err := queue.StartNotificationConsumer(cfg.AMQPURL, cfg.NotifyLogDir); err != nil {
			log.Printf("notify-consumer: stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Validator = validator.New()

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	public := handler.NewPublicHandler(sessionRepo, dateRepo, slotRepo, holds, confirmer, coordinator)
	owner := handler.NewOwnerHandler(sessionRepo, dateRepo, bookingRepo, confirmer)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, public, limit, cache)
	router.RegisterOwner(e, owner, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
