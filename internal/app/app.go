package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DeyanBora/ElasticSearch.API/internal/config"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine/breaker"
	esengine "github.com/DeyanBora/ElasticSearch.API/internal/engine/elasticsearch"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine/memory"
	"github.com/DeyanBora/ElasticSearch.API/internal/event"
	handler "github.com/DeyanBora/ElasticSearch.API/internal/handler/http"
	"github.com/DeyanBora/ElasticSearch.API/internal/service"
	"github.com/DeyanBora/ElasticSearch.API/pkg/database"
	"github.com/DeyanBora/ElasticSearch.API/pkg/health"
	pkgkafka "github.com/DeyanBora/ElasticSearch.API/pkg/kafka"
	"github.com/DeyanBora/ElasticSearch.API/pkg/middleware"
	"github.com/DeyanBora/ElasticSearch.API/pkg/tracing"
)

// App wires together all dependencies and runs the catalog search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          engine.DocumentStore
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// The document store, including its index, is ready before the router is
// built.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	a.store = breaker.New(store, breaker.Config{
		Name:         "document-store",
		MaxRequests:  cfg.BreakerMaxRequests,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		FailureRatio: cfg.BreakerFailureRatio,
		MinRequests:  cfg.BreakerMinRequests,
	}, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("document_store", a.store.Ping)

	// Redis backs event de-duplication when enabled.
	if cfg.RedisEnabled {
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Host = cfg.RedisHost
		redisCfg.Port = cfg.RedisPort
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB

		client, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		healthHandler.RegisterOptional("redis", database.RedisHealthCheck(client))
		logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))
	}

	var opts []service.Option
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		if err := a.producer.Ping(ctx); err != nil {
			logger.Warn("kafka brokers unreachable, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		}
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		opts = append(opts, service.WithPublisher(event.NewPublisher(a.producer)))
	}

	productService := service.NewProductService(a.store, logger, opts...)

	if cfg.KafkaEnabled {
		a.consumers = a.newConsumers(productService)
		logger.Info("kafka consumers initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Int("topic_count", len(a.consumers)),
		)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(productService, healthHandler, handler.RouterConfig{
		ServiceName:    cfg.ServiceName,
		CORS:           corsCfg,
		RequestTimeout: cfg.RequestTimeout,
		PprofCIDRs:     cfg.PprofCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.DocumentStore, error) {
	if cfg.SearchEngine == config.EngineMemory {
		logger.Info("in-memory document store initialized")
		return memory.New(), nil
	}

	es, err := esengine.New(ctx, esengine.Config{
		Addresses: cfg.ElasticsearchURLs,
		Index:     cfg.ElasticsearchIndex,
		Username:  cfg.ElasticsearchUsername,
		Password:  cfg.ElasticsearchPassword,
		Refresh:   cfg.ElasticsearchRefresh,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init elasticsearch engine: %w", err)
	}
	logger.Info("elasticsearch document store initialized",
		slog.Any("urls", cfg.ElasticsearchURLs),
		slog.String("index", es.Index()),
	)
	return es, nil
}

func (a *App) newConsumers(indexer event.ProductIndexer) []*pkgkafka.Consumer {
	var idempotency pkgkafka.IdempotencyStore
	if a.redis != nil {
		idempotency = pkgkafka.NewRedisIdempotencyStore(a.redis, a.cfg.ServiceName+":events", a.cfg.IdempotencyTTL)
	} else {
		idempotency = pkgkafka.NewMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}

	eventConsumer := event.NewConsumer(indexer, a.logger)
	handle := pkgkafka.IdempotentHandler(idempotency, eventConsumer.Handle, a.logger)

	consumers := make([]*pkgkafka.Consumer, 0, len(event.Topics()))
	for _, topic := range event.Topics() {
		consumers = append(consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  a.cfg.KafkaBrokers,
			GroupID:  a.cfg.KafkaGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, handle, a.logger, pkgkafka.WithDeadLetter(a.dlq)))
	}
	return consumers
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
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
		a.logger.Error("component failed, shutting down", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components: the HTTP server drains first so
// in-flight spans and events are flushed by the later steps.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error

	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka DLQ producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
