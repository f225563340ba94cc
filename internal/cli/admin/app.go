package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/config"
	"github.com/cloo-solutions/plancheck/internal/database"
	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/geometry"
	"github.com/cloo-solutions/plancheck/internal/logger"
	"github.com/cloo-solutions/plancheck/internal/metrics"
	"github.com/cloo-solutions/plancheck/internal/openai"
	"github.com/cloo-solutions/plancheck/internal/repository"
	"github.com/cloo-solutions/plancheck/internal/service"
	"github.com/cloo-solutions/plancheck/internal/storage"
	"github.com/cloo-solutions/plancheck/internal/telemetry"
	"github.com/cloo-solutions/plancheck/internal/workflow"
)

type chunkStore interface {
	service.ChunkStore
	Count(ctx context.Context) (domain.IngestResult, error)
}

// App holds the wired components shared by the plancheckd commands.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Pool      *pgxpool.Pool
	Redis     *repository.RedisStore
	Store     chunkStore
	Index     *service.HierarchicalIndex
	Retrieval *service.RetrievalCoordinator
	Ingestion *service.IngestionService
	Workflow  *workflow.Workflow
	// Drawings is nil without Redis.
	Drawings *repository.DrawingRepository

	closers []func()
}

// loadConfig loads configuration and builds the process logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.LogLevel
	if level == "" && cfg.Debug {
		level = "debug"
	}
	log, err := logger.NewLogger(cfg.Environment, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// initTelemetry starts Sentry when a DSN is configured. The returned func
// flushes pending events.
func initTelemetry(cfg *config.Config, log *zap.Logger) func() {
	if !cfg.HasSentry() {
		return func() {}
	}
	// 10% sampling in production, everything elsewhere
	sampleRate := 1.0
	if cfg.Environment == "production" {
		sampleRate = 0.1
	}
	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	}, log)
	if err != nil {
		log.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		return func() {}
	}
	return shutdown
}

// NewApp connects the configured stores and wires the index, retrieval,
// ingestion and workflow components.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("PLANCHECK_OPENAI_API_KEY is required")
	}
	metrics.RegisterIndexMetrics()
	metrics.RegisterWorkflowMetrics()

	app := &App{Config: cfg, Logger: log}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.Pool = pool
		app.closers = append(app.closers, pool.Close)
		app.Store = repository.NewRegulationChunkRepository(pool)
		log.Info("connected to database")
	} else {
		app.Store = repository.NewMemoryChunkStore()
		log.Warn("no database configured, regulation chunks are kept in memory")
	}

	llm := openai.NewClientWithConfig(cfg.OpenAI())
	var embedder service.EmbeddingClient = llm

	if cfg.HasRedis() {
		rs, err := repository.NewRedisStore(cfg.Redis())
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		app.Redis = rs
		app.Drawings = repository.NewDrawingRepository(rs)
		embedder = service.NewCachedEmbeddingClient(
			llm,
			repository.TTLStore{RedisStore: rs, TTL: cfg.EmbeddingTTL},
			service.EmbeddingCacheNamespace(cfg.EmbeddingModel, cfg.EmbeddingDimensions),
			metrics.EmbeddingCacheTotal,
			log,
		)
		log.Info("connected to redis", zap.Strings("addrs", cfg.RedisAddrs))
	}

	index, err := service.NewHierarchicalIndexWithConfig(app.Store, embedder, cfg.Index())
	if err != nil {
		return nil, err
	}
	app.Index = index
	app.Retrieval = service.NewRetrievalCoordinator(index)

	var objects service.ObjectReader
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, cfg.S3())
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		objects = s3Client
	}
	app.Ingestion = service.NewIngestionService(index, objects)

	app.Workflow = workflow.New(app.Retrieval, geometry.NewEngine(cfg.Geometry()), llm, cfg.Workflow())

	ok = true
	return app, nil
}

// Close releases stores in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// logCounts reports what the store holds.
func (a *App) logCounts(ctx context.Context) {
	count, err := a.Store.Count(ctx)
	if err != nil {
		a.Logger.Warn("failed to count regulation chunks", zap.Error(err))
		return
	}
	a.Logger.Info("regulation index",
		zap.Int("parents", count.Parents),
		zap.Int("children", count.Children),
		zap.Int("tables", count.Tables))
}
