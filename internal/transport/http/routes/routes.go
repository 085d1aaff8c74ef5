package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/infra/config"
	"github.com/arklim/marketplace-auth/internal/transport/http/handlers"
	"github.com/arklim/marketplace-auth/internal/transport/http/middleware"
	"github.com/arklim/marketplace-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth  *usecase.AuthService
	Shops *usecase.ShopService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Services    ServiceSet
	Cookies     *handlers.CookieJar
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Tracer      trace.Tracer
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the gin engine with middleware and routes.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing(deps.Tracer))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	health := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", health.Status)
	r.GET("/readyz", health.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(deps.RateLimiter.Limit(middleware.RateLimitPolicy{
		Name:   "api_ip",
		Limit:  deps.Config.RateLimit.MaxRequests,
		Window: deps.Config.RateLimit.WindowDuration,
		Key:    middleware.ClientIP(),
	}))

	if deps.Services.Auth != nil {
		handlers.NewAuthHandler(deps.Services.Auth, deps.Cookies).RegisterRoutes(api)
	}
	if deps.Services.Shops != nil {
		handlers.NewShopHandler(deps.Services.Shops).RegisterRoutes(api)
	}

	return r
}
