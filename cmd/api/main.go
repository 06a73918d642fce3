package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Chochanguk/Yoribogo/server/config"
	"github.com/Chochanguk/Yoribogo/server/internal/database"
	"github.com/Chochanguk/Yoribogo/server/internal/logger"
	"github.com/Chochanguk/Yoribogo/server/internal/server"
	"github.com/Chochanguk/Yoribogo/server/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("api: %v", err)
	}
}

func run() error {
	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.LogLevel, config.IsProduction())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	redisClient, err := database.NewRedisClient(cfg, zl)
	if err != nil {
		zl.Warn("continuing without redis", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	s3cfg, err := config.NewS3Config(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to configure object storage: %w", err)
	}

	llm, err := service.NewLLMService(service.LLMConfig{
		APIKey:  cfg.AIAPIKey,
		APIURL:  cfg.AIAPIURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, zl)
	if err != nil {
		return fmt.Errorf("failed to create text model client: %w", err)
	}

	images := service.NewOpenAIImageClient(service.ImageClientConfig{
		APIKey: cfg.ImageAPIKey,
		APIURL: cfg.ImageAPIURL,
		Model:  cfg.ImageModel,
		Size:   cfg.ImageSize,
	})

	// Create and start server
	srv, err := server.New(cfg, server.Deps{
		DB:      db,
		Redis:   redisClient,
		AI:      llm,
		Images:  images,
		Storage: service.NewS3Storage(s3cfg),
		Rand:    service.DefaultRand(),
		Logger:  zl,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal or error
	var serveErr error
	select {
	case serveErr = <-errChan:
		if serveErr != nil {
			zl.Error("server error", zap.Error(serveErr))
		}
	case sig := <-quit:
		zl.Info("received signal", zap.String("signal", sig.String()))
	}

	zl.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("server shutdown error", zap.Error(err))
	}
	zl.Info("server stopped")
	return serveErr
}
