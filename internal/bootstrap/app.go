package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"studyviz-backend/internal/documents"
	"studyviz-backend/internal/events"
	"studyviz-backend/internal/extract"
	"studyviz-backend/internal/llm"
	openai "studyviz-backend/internal/llm/openai"
	"studyviz-backend/internal/pipeline"
	"studyviz-backend/internal/services/health"
	"studyviz-backend/internal/shared/config"
	"studyviz-backend/internal/shared/server"
	"studyviz-backend/internal/shared/storage/db"
	"studyviz-backend/internal/shared/storage/object"
	localstore "studyviz-backend/internal/shared/storage/object/local"
	s3store "studyviz-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies and the configured router.
type App struct {
	Config           config.Config
	Health           *health.Service
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Repo             documents.Repo
	Hub              *events.Hub
	Runner           *pipeline.Runner
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Hub:    events.NewHub(),
	}
	if sqlDB != nil {
		app.Repo = &documents.PGRepo{DB: sqlDB}
		app.Health = health.NewService(sqlDB)
	} else {
		app.Repo = documents.NewMemoryRepo()
		app.Health = health.NewService(nil)
	}

	app.Runner = &pipeline.Runner{
		Repo:      app.Repo,
		Extractor: extract.PDFExtractor{},
		LLM:       llmClient,
		Objects:   app.Store,
		Timeout:   cfg.PipelineTimeout,
		Events:    app.Hub,
	}
	app.DocumentsService = &documents.Service{
		Repo:      app.Repo,
		Objects:   app.Store,
		Processor: app.Runner,
	}
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService, app.Hub)
	if app.DocumentsHandler == nil {
		return nil, errors.New("failed to initialize handlers")
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		DocumentHandler: app.DocumentsHandler,
		Health:          app.Health,
	})

	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repository")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory repository: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "none":
		return nil, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		log.Printf("bootstrap: LLM_PROVIDER=%q; generation disabled", cfg.LLMProvider)
		return llm.PlaceholderClient{}, nil
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; generation disabled")
			return llm.PlaceholderClient{}, nil
		}
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	})
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
