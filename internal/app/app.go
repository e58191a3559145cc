package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/gateway"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/redisclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ServiceName labels logs, metrics, traces and published notifications.
const ServiceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	engine         *catalog.Engine
	shop           *storefront.Client
	history        *notify.Recorder
	health         *health.Handler
	producer       *pkgkafka.Producer
	rdb            *redis.Client
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		history:        notify.NewRecorder(cfg.NotifyHistorySize),
		health:         health.NewHandler(),
		tracerShutdown: tracerShutdown,
	}

	// Notification sinks. The in-memory history is always on.
	sinks := notify.Multi{a.history}
	if cfg.HasSink(config.SinkLog) {
		sinks = append(sinks, notify.NewLogNotifier(logger))
	}
	if cfg.HasSink(config.SinkKafka) {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		sinks = append(sinks, notify.NewKafkaNotifier(a.producer, cfg.KafkaTopic, ServiceName, logger))
		a.health.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka notification sink enabled",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic),
		)
	}
	if cfg.HasSink(config.SinkRedis) {
		a.rdb, err = redisclient.New(ctx, redisclient.Config{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 3 * time.Second,
		})
		if err != nil {
			_ = a.closeSinks()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		sinks = append(sinks, notify.NewRedisNotifier(a.rdb, cfg.RedisChannel, logger))
		a.health.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		})
		logger.Info("redis notification sink enabled",
			slog.String("addr", cfg.RedisAddr),
			slog.String("channel", cfg.RedisChannel),
		)
	}

	// Outbound client: retries and rate limiting, behind a circuit breaker.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.ClientTimeout
	clientCfg.MaxRetries = cfg.ClientRetries
	clientCfg.RateLimit = cfg.ClientRateLimit
	clientCfg.RateBurst = cfg.ClientRateBurst

	breakerCfg := httpclient.DefaultCircuitBreakerConfig("storefront-api")
	breakerCfg.Timeout = cfg.BreakerTimeout
	breakerCfg.FailureRatio = cfg.BreakerFailureRatio

	client := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg), breakerCfg, logger)

	gw := gateway.New(cfg.APIBaseURL, client, sinks, logger)
	a.engine = catalog.NewEngine(gw, logger)
	a.shop = storefront.NewClient(gw, logger)

	// Health checks.
	a.health.RegisterCritical("catalog", func(context.Context) error {
		if !a.engine.Ready() {
			return errors.New("no product snapshot loaded yet")
		}
		return nil
	})
	a.health.RegisterNonCritical("backend", backendCheck(client, cfg.APIBaseURL+cfg.APIHealthPath))

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName: ServiceName,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
	}, a.engine, a.history, a.shop, a.health, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// backendCheck pings the backend health endpoint.
func backendCheck(client *httpclient.CircuitBreakerClient, url string) health.Checker {
	return func(ctx context.Context) error {
		resp, err := client.Get(ctx, url)
		if err != nil {
			return fmt.Errorf("backend unreachable: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("backend health returned %d", resp.StatusCode)
		}
		return nil
	}
}

// Handler returns the HTTP handler served by Run.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run loads the first snapshot, starts the refresh loop and the HTTP server,
// and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	// A failed first load is not fatal: readiness stays down until a later
	// refresh succeeds.
	if err := a.engine.Refresh(ctx); err != nil {
		a.logger.Warn("initial product refresh failed", slog.String("error", err.Error()))
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.engine.RefreshEvery(loopCtx, a.cfg.RefreshInterval)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("backend", a.cfg.APIBaseURL),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stopLoop()
	wg.Wait()

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Notification sinks (flush pending messages)
// 3. Tracer (flush pending spans)
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeSinks(); err != nil {
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeSinks() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
