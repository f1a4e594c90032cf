package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/whitehat88/recruitment-auth/internal/core/port"
	"github.com/whitehat88/recruitment-auth/internal/infra/config"
	"github.com/whitehat88/recruitment-auth/internal/infra/database"
	kafkainfra "github.com/whitehat88/recruitment-auth/internal/infra/kafka"
	"github.com/whitehat88/recruitment-auth/internal/infra/logger"
	redisinfra "github.com/whitehat88/recruitment-auth/internal/infra/redis"
	"github.com/whitehat88/recruitment-auth/internal/infra/security"
	"github.com/whitehat88/recruitment-auth/internal/infra/telemetry"
	"github.com/whitehat88/recruitment-auth/internal/ratelimit"
	"github.com/whitehat88/recruitment-auth/internal/repository/memory"
	postgresrepo "github.com/whitehat88/recruitment-auth/internal/repository/postgres"
	redisrepo "github.com/whitehat88/recruitment-auth/internal/repository/redis"
	"github.com/whitehat88/recruitment-auth/internal/transport/http/middleware"
	"github.com/whitehat88/recruitment-auth/internal/transport/http/routes"
	"github.com/whitehat88/recruitment-auth/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	inspector := postgresrepo.NewSchemaInspector(pool, log)
	users := postgresrepo.NewUserRepository(pool, inspector)
	sessions := postgresrepo.NewSessionRecordRepository(pool, inspector)

	// Reset tokens live in redis when it is reachable; otherwise the service
	// degrades to a process-local store instead of refusing to start.
	var redisClient *redisinfra.Client
	var resetTokens port.ResetTokenStore
	if cfg.Redis.Host != "" {
		client, err := redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, using in-memory reset token store", zap.Error(err))
		} else {
			redisClient = client
			resetTokens = redisrepo.NewResetTokenStore(client.Client(), cfg.Redis.ResetPrefix)
		}
	} else {
		log.Info("redis not configured, using in-memory reset token store")
	}
	if resetTokens == nil {
		resetTokens = memory.NewResetTokenStore()
	}

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			producer = p
			eventPublisher = kafkainfra.NewEventPublisher(p, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	hasher := security.NewPasswordHasher(cfg.Password.BcryptCost)
	codec := security.NewSessionTokenCodec(cfg.Session.Secret)
	policy := security.NewPasswordPolicy(cfg.Password.MinLength, cfg.Password.MinScore)

	rateLimiter := middleware.NewRateLimiter(ratelimit.New(), log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if producer != nil {
			_ = producer.Close()
		}
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	authService := usecase.NewAuthService(cfg, users, sessions, hasher, codec, eventPublisher, log)
	passwordResetService := usecase.NewPasswordResetService(cfg, users, resetTokens, sessions, hasher, policy, eventPublisher, log)

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Telemetry:   provider,
		Services: routes.ServiceSet{
			Auth:          authService,
			PasswordReset: passwordResetService,
		},
		Database: pool,
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}

	engine := routes.Register(deps)

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		tracer:   tracer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting recruitment auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
