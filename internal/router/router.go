package router

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Chochanguk/Yoribogo/server/internal/api"
	"github.com/Chochanguk/Yoribogo/server/internal/middleware"
)

// Options carries everything the router wires together.
type Options struct {
	CORSOrigins   []string
	Logger        *zap.Logger
	RecipeHandler *api.RecipeHandler
	Guards        api.RouteGuards
	DBHealth      api.Pinger
}

// SetupRouter configures the application routes
func SetupRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		requestid.New(),
		middleware.RequestLogger(log.Named("http")),
		middleware.Recovery(log),
		middleware.CORS(opts.CORSOrigins),
	)

	router.GET("/health", api.HealthCheck(opts.DBHealth))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	opts.RecipeHandler.RegisterRoutes(v1, opts.Guards)

	return router
}
