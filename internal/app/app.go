package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/config"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/event"
	handler "github.com/pannatron/Bakugan-Dashboard-sub000/internal/handler/http"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/repository"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/repository/memory"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/repository/postgres"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/search"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/search/elasticsearch"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/service"
	"github.com/pannatron/Bakugan-Dashboard-sub000/migrations"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/database"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/health"
	pkgkafka "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/kafka"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/middleware"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/tracing"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	service        *service.CatalogService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	// Tracing is a no-op unless OTEL_ENABLED is set.
	shutdown, err := tracing.InitTracer(ctx, cfg.Tracing(handler.Component))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = shutdown

	items, prices, err := a.initStore(ctx, healthHandler)
	if err != nil {
		a.close()
		return nil, err
	}

	engine, err := a.initSearchEngine(ctx, healthHandler)
	if err != nil {
		a.close()
		return nil, err
	}

	// Kafka is optional; without it the producer publishes nothing.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	eventProducer := event.NewProducer(publisher, logger)
	a.service = service.NewCatalogService(items, prices, engine, eventProducer, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(a.service, healthHandler, handler.RouterConfig{
		CORS:       corsCfg,
		ReadMaxAge: cfg.ReadCacheMaxAgeSecs,
		WriteRPS:   cfg.WriteRateLimitRPS,
		WriteBurst: cfg.WriteRateLimitBurst,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// initStore connects the configured repository backend.
func (a *App) initStore(ctx context.Context, h *health.Handler) (repository.ItemRepository, repository.PriceRepository, error) {
	if a.cfg.Store == config.StoreMemory {
		a.logger.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return store.Items(), store.Prices(), nil
	}

	database.SetSlowQueryLogging(a.cfg.SlowQueryThreshold(), a.logger)

	pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres(), a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", a.cfg.PostgresHost),
		slog.Int("port", a.cfg.PostgresPort),
		slog.String("database", a.cfg.PostgresDB),
	)

	if a.cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, handler.Component); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	h.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return postgres.NewItemRepository(pool), postgres.NewPriceRepository(pool), nil
}

// initSearchEngine returns nil when searches should go to the repository.
func (a *App) initSearchEngine(ctx context.Context, h *health.Handler) (search.Engine, error) {
	if a.cfg.SearchEngine != config.EngineElasticsearch {
		return nil, nil
	}

	engine, err := elasticsearch.New(a.cfg.ElasticsearchURL, a.cfg.ElasticsearchIndex, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch engine: %w", err)
	}
	if err := engine.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure elasticsearch index: %w", err)
	}
	h.Register("elasticsearch", engine.Ping)

	a.logger.Info("elasticsearch search engine enabled",
		slog.String("url", a.cfg.ElasticsearchURL),
		slog.String("index", a.cfg.ElasticsearchIndex),
	)
	return engine, nil
}

// Handler returns the HTTP handler served by the application.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Service returns the catalog service.
func (a *App) Service() *service.CatalogService {
	return a.service
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()

	a.logger.Info("application shutdown complete")
	return nil
}

// close releases the producer, pool and tracer. It is safe on a partially
// built App.
func (a *App) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
