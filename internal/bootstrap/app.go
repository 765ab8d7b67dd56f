package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-optimizer/internal/llm"
	"resume-optimizer/internal/llm/openai"
	"resume-optimizer/internal/optimizations"
	"resume-optimizer/internal/scrape"
	"resume-optimizer/internal/services/health"
	"resume-optimizer/internal/shared/config"
	"resume-optimizer/internal/shared/server"
	"resume-optimizer/internal/shared/storage/db"
)

var errRequiredDatabase = errors.New("DATABASE_URL is required outside dev")

// App holds shared dependencies.
type App struct {
	Config              config.Config
	Router              *gin.Engine
	DB                  *sql.DB
	Repo                optimizations.Repo
	OptimizationService *optimizations.Service
	OptimizationHandler *optimizations.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var repo optimizations.Repo
	if sqlDB != nil {
		repo = &optimizations.PGRepo{DB: sqlDB}
	} else {
		repo = optimizations.NewMemoryRepo()
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	svc := &optimizations.Service{
		Repo:           repo,
		LLM:            llmClient,
		Fetcher:        scrape.NewFetcher(cfg.FetchTimeout),
		CleanseJobText: cfg.CleanseJobText,
	}
	handler := optimizations.NewHandler(svc)

	app := &App{
		Config:              cfg,
		DB:                  sqlDB,
		Repo:                repo,
		OptimizationService: svc,
		OptimizationHandler: handler,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:              cfg,
		Health:              health.NewService(sqlDB),
		OptimizationHandler: handler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory history")
			return nil, nil
		}
		return nil, errRequiredDatabase
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory history: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory history: %v", err)
			sqlDB.Close()
			return nil, nil
		}
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider == "openai" && strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	}
	log.Printf("bootstrap: llm provider %q not configured; optimization requests will fail", cfg.LLMProvider)
	return llm.PlaceholderClient{}, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
