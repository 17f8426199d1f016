package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coachlab/coach-api/internal/auth"
	"github.com/coachlab/coach-api/internal/config"
	"github.com/coachlab/coach-api/internal/database"
	"github.com/coachlab/coach-api/internal/gamification"
	"github.com/coachlab/coach-api/internal/guard"
	"github.com/coachlab/coach-api/internal/handlers"
	"github.com/coachlab/coach-api/internal/logger"
	"github.com/coachlab/coach-api/internal/notifier"
	"github.com/coachlab/coach-api/internal/ratelimit"
	"github.com/coachlab/coach-api/internal/scheduler"
	"github.com/coachlab/coach-api/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	log := logger.New(cfg)
	defer log.Sync()

	// Connect to Database
	db := database.Connect(cfg, log)

	// Optional integrations degrade to local fallbacks
	var submissionGuard guard.Guard = guard.NewMemoryGuard()
	if cfg.RedisAddr != "" {
		client := guard.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("Redis not reachable, guard will retry per request", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		submissionGuard = guard.NewRedisGuard(client, "coach:")
	}

	var photos storage.PhotoStore
	if cfg.S3Bucket != "" {
		store, err := storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			log.Fatal("Failed to initialize photo storage", zap.Error(err))
		}
		photos = store
	} else {
		log.Info("S3_BUCKET not set, photo uploads disabled")
	}

	var staffFeed notifier.Notifier
	if discordNotifier, err := notifier.NewDiscordNotifier(cfg); err != nil {
		log.Info("Discord notifier not initialized", zap.Error(err))
	} else {
		staffFeed = discordNotifier
	}

	// Gamification
	cal := gamification.NewCalendar(cfg.DayOffset())
	engine := gamification.NewEngine(db, cal, log.Named("gamification"), gamification.Options{
		RejectBackdated: cfg.GamificationRejectBackdated,
	})

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db, log.Named("auth"))
	h := handlers.Handlers{
		Auth:         authHandler,
		CheckIns:     handlers.NewCheckInHandler(db, engine, authHandler, submissionGuard, photos, staffFeed, log.Named("checkins")),
		Gamification: handlers.NewGamificationHandler(gamification.NewQuery(db), authHandler, log),
		Achievements: handlers.NewAchievementHandler(db, authHandler),
		APIKeys:      handlers.NewAPIKeyHandler(db, authHandler),
	}

	sched, err := scheduler.Start(db, cfg.APIKeyCleanupInterval, log.Named("scheduler"))
	if err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	trustedProxies, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatal("Invalid TRUSTED_PROXIES", zap.Error(err))
	}

	// Initialize Router
	r := chi.NewRouter()
	handlers.RegisterRoutes(r, cfg, h, ratelimit.New(cfg.RateLimitPerMinute), trustedProxies, log.Named("http"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Port), zap.String("day_zone", cal.Location().String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := sched.Shutdown(); err != nil {
		log.Error("Scheduler shutdown failed", zap.Error(err))
	}
}
