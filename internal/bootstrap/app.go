package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/analyses"
	"ats-backend/internal/jobs"
	"ats-backend/internal/queue"
	"ats-backend/internal/scoring"
	"ats-backend/internal/services/health"
	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/server"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/storage/db"
	"ats-backend/internal/shared/storage/object"
	localstore "ats-backend/internal/shared/storage/object/local"
	s3store "ats-backend/internal/shared/storage/object/s3"
	"ats-backend/internal/shared/validation"
	"ats-backend/internal/similarity"
)

const connectAttempts = 5

// App holds shared dependencies.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	Queue             queue.Client
	AMQP              *queue.AMQPClient
	Store             object.Store
	Signer            *auth.Signer
	Similarity        *similarity.Client
	Analyzer          *scoring.Analyzer
	JobsRepo          jobs.Repo
	AnalysesRepo      analyses.Repo
	JobsService       *jobs.Service
	AnalysesService   *analyses.Service
	JobsHandler       *jobs.Handler
	AnalysisHandler   *analyses.Handler
	HealthService     *health.Service
	AnalysisProcessor AnalysisProcessor
}

// AnalysisProcessor allows callers to override analysis processing for tests.
type AnalysisProcessor interface {
	ProcessAnalysis(ctx context.Context, analysisID string) error
}

// Options adjusts Build for the calling binary.
type Options struct {
	// DBOptions sizes the connection pool. Zero means server defaults.
	DBOptions db.Options
	// SkipQueue leaves Queue nil even when AMQP_URL is set. The worker
	// opens its own consumer connection.
	SkipQueue bool
}

// Build prepares shared dependencies and the HTTP router.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validation.Register(); err != nil {
		return nil, fmt.Errorf("register validation: %w", err)
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.IsProduction())
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg, opts.DBOptions)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Signer: signer,
	}

	if !opts.SkipQueue {
		if err := buildQueue(ctx, app); err != nil {
			app.Close()
			return nil, err
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Verifier:        app.Signer,
		Health:          app.HealthService,
		JobsHandler:     app.JobsHandler,
		AnalysisHandler: app.AnalysisHandler,
		RateLimiter:     middleware.NewRateLimiter(nil),
	})

	return app, nil
}

// Close releases the database pool and broker connection.
func (a *App) Close() error {
	var errs []error
	if a.AMQP != nil {
		errs = append(errs, a.AMQP.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, poolOpts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if poolOpts == (db.Options{}) {
		poolOpts = db.DefaultServerOptions()
	}
	sqlDB, err := db.ConnectWithRetry(ctx, cfg.DatabaseURL, db.OptionsFromEnv(poolOpts), connectAttempts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildQueue(ctx context.Context, app *App) error {
	switch app.Config.QueueBackend {
	case "sqs":
		client, err := queue.NewSQSClient(ctx, app.Config.AWSRegion, app.Config.SQSQueueURL)
		if err != nil {
			return err
		}
		app.Queue = client
		return nil
	default:
		if app.Config.AMQPURL == "" {
			log.Printf("bootstrap: AMQP_URL empty; async analyses run in-process")
			return nil
		}
		client, err := queue.DialAMQP(app.Config.AMQPURL, app.Config.AnalysisQueue)
		if err != nil {
			return err
		}
		app.AMQP = client
		app.Queue = client
		return nil
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	if app.DB != nil {
		app.JobsRepo = &jobs.PGRepo{DB: app.DB}
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
	} else {
		app.JobsRepo = jobs.NewMemoryRepo()
		app.AnalysesRepo = analyses.NewMemoryRepo()
	}

	app.Similarity = similarity.NewClient(similarity.Config{
		URL:        app.Config.SimilarityURL,
		APIKey:     app.Config.SimilarityAPIKey,
		Timeout:    app.Config.SimilarityTimeout,
		MaxRetries: app.Config.SimilarityMaxRetries,
	})
	// An unconfigured client would spend every retry on ErrNotConfigured.
	var scorer scoring.SimilarityScorer
	if app.Similarity.Configured() {
		scorer = app.Similarity
	} else {
		log.Printf("bootstrap: similarity api not configured; semantic scores report unavailable")
	}
	app.Analyzer = scoring.NewAnalyzer(scorer)

	app.JobsService = jobs.NewService(app.JobsRepo)
	app.AnalysesService = &analyses.Service{
		Repo:   app.AnalysesRepo,
		Jobs:   app.JobsService,
		Scorer: app.Analyzer,
		Queue:  app.Queue,
		Store:  app.Store,
	}
	app.AnalysisProcessor = app.AnalysesService

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.HealthService = health.NewService(pinger, queueName(app))
	app.JobsHandler = jobs.NewHandler(app.JobsService)
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService, app.Config.MaxUploadBytes)
}

func queueName(app *App) string {
	if app.Queue == nil {
		return ""
	}
	if app.Config.QueueBackend == "sqs" {
		return "sqs"
	}
	return "amqp"
}
