package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/config"
	"github.com/arklim/marketplace-auth/internal/infra/database"
	kafkainfra "github.com/arklim/marketplace-auth/internal/infra/kafka"
	"github.com/arklim/marketplace-auth/internal/infra/logger"
	"github.com/arklim/marketplace-auth/internal/infra/mail"
	redisinfra "github.com/arklim/marketplace-auth/internal/infra/redis"
	"github.com/arklim/marketplace-auth/internal/infra/security"
	"github.com/arklim/marketplace-auth/internal/infra/telemetry"
	postgresrepo "github.com/arklim/marketplace-auth/internal/repository/postgres"
	redisrepo "github.com/arklim/marketplace-auth/internal/repository/redis"
	"github.com/arklim/marketplace-auth/internal/transport/http/handlers"
	"github.com/arklim/marketplace-auth/internal/transport/http/middleware"
	"github.com/arklim/marketplace-auth/internal/transport/http/routes"
	"github.com/arklim/marketplace-auth/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	notifier *mail.AsyncNotifier
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	a := &Application{
		cfg:    cfg,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracerProvider,
	}
	if err := a.wire(); err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) wire() error {
	cfg, log := a.cfg, a.logger

	hasher, err := security.NewPasswordHasher(cfg.Password)
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}
	tokenIssuer, err := security.NewTokenIssuer(cfg.JWT)
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		return fmt.Errorf("init mail templates: %w", err)
	}
	var delivery port.Notifier
	if cfg.SMTP.Host != "" {
		delivery = mail.NewSMTPNotifier(cfg.SMTP, renderer)
		log.Info("smtp notifier initialized", zap.String("host", cfg.SMTP.Host), zap.Int("port", cfg.SMTP.Port))
	} else {
		log.Info("smtp host not configured, emails are logged only")
		delivery = mail.NewLogNotifier(log)
	}
	a.notifier = mail.NewAsyncNotifier(delivery, cfg.SMTP.SendTimeout, log)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			a.producer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	repos := postgresrepo.NewRepositories(a.pool)
	state := redisrepo.NewStateRepository(a.redis.Client())

	otp := usecase.NewOTPManager(
		state,
		a.notifier,
		domain.OTPKeys{LegacyAttemptsKey: cfg.OTP.LegacyAttemptsKey},
		usecase.OTPPolicyFromConfig(cfg.OTP),
		log,
	).WithMetrics(telemetry.NewOTPMetrics(prometheus.DefaultRegisterer))

	authService := usecase.NewAuthService(repos.Accounts, otp, hasher, tokenIssuer, log).
		WithEventPublisher(eventPublisher).
		WithResetTicketRequired(cfg.OTP.RequireResetTicket)
	shopService := usecase.NewShopService(repos.Accounts, repos.Shops, log)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(a.redis.Client(), "", rateLimitWindow*2)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	a.engine = routes.Register(routes.Dependencies{
		Config: cfg,
		Logger: log,
		Services: routes.ServiceSet{
			Auth:  authService,
			Shops: shopService,
		},
		Cookies:     handlers.NewCookieJar(cfg.Cookie, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL),
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		Metrics:     httpMetrics,
		Gatherer:    prometheus.DefaultGatherer,
		Tracer:      a.tracer.Tracer(cfg.Telemetry.ServiceName),
		Database:    a.pool,
		Cache:       a.redis,
	})
	return nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		if err := a.notifier.Wait(shutdownCtx); err != nil {
			a.logger.Warn("pending emails not delivered before shutdown", zap.Error(err))
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// close releases backing resources in reverse order of construction.
func (a *Application) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown tracer provider", zap.Error(err))
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
