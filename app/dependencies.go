package app

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/casecoach/backend/config"
	"github.com/casecoach/backend/middleware"
	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
	"github.com/casecoach/backend/services/audit"
	"github.com/casecoach/backend/services/coach"
	"github.com/casecoach/backend/services/embedding"
	"github.com/casecoach/backend/services/indexstore"
	"github.com/casecoach/backend/services/retrieval"
	"github.com/casecoach/backend/services/safety"
	"github.com/casecoach/backend/services/synthesis"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *sql.DB // nil when audit persistence is not configured

	// Pipeline
	Provider  embedding.Provider
	Store     *indexstore.Store
	Retrieval *retrieval.Engine
	Gate      *safety.Gate
	Generator synthesis.Generator
	Coach     *coach.Service
	Audit     *audit.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initProvider(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	deps.initIndex(ctx, cfg)

	if err := deps.initPipeline(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	deps.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Admin.JWTSecret, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the optional audit database. Audit persistence is
// best-effort: a missing or unreachable database downgrades to counters only.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Info("no audit database configured, keeping counters only")
		return nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		d.Logger.Warn("audit database unreachable, keeping counters only",
			zap.String("connection", cfg.Database.LogString()),
			zap.Error(err))
		_ = db.Close()
		return nil
	}

	d.DB = db
	d.Logger.Info("audit database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// initProvider constructs the embedding provider named by configuration.
func (d *Dependencies) initProvider(cfg *config.Config) error {
	switch cfg.Embedding.Provider {
	case "openai":
		provider, err := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimension:  cfg.Embedding.Dimension,
			Timeout:    cfg.Embedding.Timeout,
			MaxRetries: cfg.Embedding.MaxRetries,
		})
		if err != nil {
			return err
		}
		d.Provider = provider
	case "local":
		d.Provider = embedding.NewLocalProvider(cfg.Embedding.Dimension)
	default:
		return fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	d.Logger.Info("embedding provider initialized",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", d.Provider.Model()),
		zap.Int("dimension", d.Provider.Dimension()))
	return nil
}

// initIndex creates the index store and attempts to load a persisted index.
// The server starts either way; retrieval returns not_ready until a load or
// rebuild succeeds.
func (d *Dependencies) initIndex(ctx context.Context, cfg *config.Config) {
	corpusPath := filepath.Join(cfg.Data.DataDir, indexstore.CasesFile)
	d.Store = indexstore.New(cfg.Data.IndexDir, corpusPath, d.Logger)

	if !d.Store.PersistedIndexExists() {
		d.Logger.Warn("no persisted index found, serving not_ready until reindex",
			zap.String("index_dir", cfg.Data.IndexDir))
		return
	}

	if err := d.Store.Load(ctx, d.Provider); err != nil {
		d.Logger.Error("failed to load persisted index, serving not_ready",
			zap.Error(err))
		return
	}

	d.Logger.Info("index loaded", zap.String("index_dir", cfg.Data.IndexDir))
}

// initPipeline wires retrieval, safety, synthesis, coaching, and audit.
func (d *Dependencies) initPipeline(cfg *config.Config) error {
	d.Retrieval = retrieval.New(d.Store, d.Provider, d.Logger)
	d.Gate = safety.New(d.Logger)

	if cfg.Generation.APIKey != "" {
		generator, err := synthesis.NewOpenAIGenerator(synthesis.OpenAIConfig{
			BaseURL:     cfg.Generation.BaseURL,
			APIKey:      cfg.Generation.APIKey,
			Model:       cfg.Generation.Model,
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
			Timeout:     cfg.Generation.Timeout,
		}, d.Logger)
		if err != nil {
			return err
		}
		d.Generator = generator
	} else {
		d.Logger.Warn("no generation API key configured, coach requests will fail upstream")
		d.Generator = unavailableGenerator{}
	}

	d.Coach = coach.New(d.Gate, d.Generator, cfg.Pipeline.CoachTimeout, d.Logger)
	d.Audit = audit.NewService(d.DB, audit.NewMetrics(), d.Logger)
	return nil
}

// InitAuditSchema creates the audit table when persistence is configured.
func (d *Dependencies) InitAuditSchema(ctx context.Context) error {
	return d.Audit.InitSchema(ctx)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}

// unavailableGenerator stands in when no generation credentials are
// configured, so coach requests fail with a typed upstream error instead of
// a panic.
type unavailableGenerator struct{}

func (unavailableGenerator) Synthesize(context.Context, string, []models.Case) (*models.SynthesisOutput, error) {
	return nil, services.ErrProviderUnavailable.WithDetail("reason", "no generation API key configured")
}
