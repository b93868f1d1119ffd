package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/config"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/database"
	apperrors "github.com/ZanzyTHEbar/diabetes-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	appLogger := monitoring.NewLogger(cfg.Logging.Level)
	slog.SetDefault(appLogger.Logger)

	if monitoring.ParseLogLevel(cfg.Logging.Level) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	var repo *database.Repository
	if cfg.Storage.Enabled {
		db, err := database.NewDB(cfg.Storage.DataDir)
		if err != nil {
			appErr := apperrors.NewConfigurationError("storage.data_dir "+cfg.Storage.DataDir+" is not usable", err)
			slog.Error("Failed to initialize database", "error", appErr, "cause", err)
			os.Exit(1)
		}
		defer db.Close()
		repo = database.NewRepository(db)
	}

	redisClient, err := ratelimit.NewRedisClient(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, using in-memory rate limiting", "error", err)
	}
	defer redisClient.Close()

	srv := NewServer(cfg, Deps{
		Logger:      appLogger,
		Repository:  repo,
		RedisClient: redisClient,
	})
	defer srv.Close()

	// build eagerly so a bad dataset shows up in the startup logs
	if _, ok, err := srv.Model(); err != nil {
		slog.Error("Initial model build failed", "error", err)
	} else if !ok {
		slog.Warn("No model available", "dataset", cfg.Dataset.Path)
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.SystemLogger("startup", "listening on "+httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}
