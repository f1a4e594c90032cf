package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/whitehat88/recruitment-auth/internal/infra/config"
	"github.com/whitehat88/recruitment-auth/internal/infra/telemetry"
	"github.com/whitehat88/recruitment-auth/internal/transport/http/handlers"
	"github.com/whitehat88/recruitment-auth/internal/transport/http/middleware"
	"github.com/whitehat88/recruitment-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	PasswordReset *usecase.PasswordResetService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Telemetry   *telemetry.Provider
	Services    ServiceSet
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

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	if deps.Telemetry != nil {
		counter := deps.Telemetry.RequestCounter()
		r.Use(func(c *gin.Context) {
			counter.Inc()
			c.Next()
		})
	}

	sessionGuard := middleware.RequireSession(deps.Services.Auth, deps.Config.Session)

	healthChecks := make([]handlers.ReadinessCheck, 0, 2)

	if deps.Database != nil {
		healthChecks = append(healthChecks, handlers.ReadinessCheck{Name: "database", Probe: deps.Database.Ping})
	}

	if deps.Cache != nil {
		healthChecks = append(healthChecks, handlers.ReadinessCheck{Name: "redis", Probe: deps.Cache.HealthCheck})
	}

	healthHandler := handlers.NewHealthHandler(healthChecks...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		isDev := deps.Config.App.Env == "development"
		notificationDispatcher := handlers.NewLoggingNotificationDispatcher(deps.Logger)

		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Config.Session)
		authHandler.RegisterRoutes(authGroup, sessionGuard, buildLoginMiddlewares(deps)...)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset, notificationDispatcher, isDev)

		passwordGroup := api.Group("/password")
		passwordHandler.RegisterRoutes(passwordGroup, buildPasswordResetMiddlewares(deps)...)
	}

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = 5 * time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "login",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildPasswordResetMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	rule := middleware.RateLimitRule{
		Name:       "password_reset",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
