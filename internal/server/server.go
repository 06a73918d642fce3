package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chochanguk/Yoribogo/server/config"
	"github.com/Chochanguk/Yoribogo/server/internal/api"
	"github.com/Chochanguk/Yoribogo/server/internal/database"
	"github.com/Chochanguk/Yoribogo/server/internal/middleware"
	"github.com/Chochanguk/Yoribogo/server/internal/router"
	"github.com/Chochanguk/Yoribogo/server/internal/service"
	"github.com/Chochanguk/Yoribogo/server/internal/store"
)

// Deps are the external clients the server is built from.
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client // nil disables rate limiting
	AI      service.AIGateway
	Images  service.ImageGenerator
	Storage service.ObjectStorage
	Rand    service.Rand
	Logger  *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	log    *zap.Logger
	router *gin.Engine
	http   *http.Server
	images *service.ImageQueue
}

// New wires the services, handlers and router.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	st := store.New(deps.DB)
	imageSvc := service.NewImageService(deps.Images, deps.Storage, st, service.ImageServiceOptions{
		MaxAttempts: cfg.ImageMaxRetries,
	}, log)
	queue := service.NewImageQueue(imageSvc.Render, cfg.ImageWorkers, cfg.ImageQueueSize, log)

	recommender, err := service.NewRecommendService(service.RecommendDeps{
		AI:             deps.AI,
		Store:          st,
		Images:         queue,
		Rand:           deps.Rand,
		SystemUserID:   cfg.SystemUserID,
		Logger:         log,
		ResolveTimeout: cfg.RecommendTimeout,
	})
	if err != nil {
		queue.Close()
		return nil, err
	}

	tokens := service.NewTokenService(cfg.JWTSecret)
	guards := api.RouteGuards{
		Auth:  middleware.AuthMiddleware(tokens),
		Admin: middleware.RequireAdmin(),
	}
	if deps.Redis != nil {
		limiter := middleware.NewRecommendRateLimiter(deps.Redis, cfg.RateLimitRequests, cfg.RateLimitWindow, log)
		guards.RateLimit = limiter.RateLimitMiddleware()
	} else {
		log.Warn("redis unavailable, recommendation rate limiting disabled")
	}

	handler := api.NewRecipeHandler(service.NewRecipeService(st), recommender, cfg.RecommendTimeout, log)
	r := router.SetupRouter(router.Options{
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        log,
		RecipeHandler: handler,
		Guards:        guards,
		DBHealth: func(ctx context.Context) error {
			return database.HealthCheck(ctx, deps.DB)
		},
	})

	return &Server{
		cfg:    cfg,
		log:    log,
		router: r,
		images: queue,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, then lets queued image jobs finish.
// When ctx has a deadline, draining HTTP may use at most half of the time
// left and the image queue gets the rest.
func (s *Server) Shutdown(ctx context.Context) error {
	httpCtx, cancel := httpDrainContext(ctx)
	httpErr := s.http.Shutdown(httpCtx)
	cancel()
	imageErr := s.images.Shutdown(ctx)
	if imageErr != nil {
		s.log.Warn("image queue did not drain", zap.Error(imageErr))
	}
	return errors.Join(httpErr, imageErr)
}

func httpDrainContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, time.Now().Add(time.Until(deadline)/2))
}
