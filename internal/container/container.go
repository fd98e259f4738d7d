package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"attest/adapters/llm"
	"attest/adapters/postgres"
	"attest/app"
	"attest/domain/registry"
	"attest/internal/api"
	"attest/internal/config"
	"attest/internal/jobs"
	"attest/internal/logx"
	"attest/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *logx.Logger

	// Infrastructure
	DB *sqlx.DB

	// Static registries, loaded once and read-only afterwards
	Registry  *registry.Registry
	Overrides *registry.OverrideTable

	// Pipeline and orchestration
	JobRepo  ports.JobRepository
	Service  *app.AssessmentService
	Worker   *jobs.Worker
	Progress *jobs.ProgressBoard
	Server   *api.Server
}

// New builds the full dependency graph from configuration
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: logx.NewDefault(),
	}

	var err error
	if c.Registry, err = registry.Load(); err != nil {
		return nil, fmt.Errorf("load domain registry: %w", err)
	}
	if c.Overrides, err = registry.LoadOverrides(); err != nil {
		return nil, fmt.Errorf("load override prompts: %w", err)
	}
	c.Logger.Info("[Container] registry loaded: %d domains, %d overrides",
		c.Registry.Len(), c.Overrides.Len())

	llmClient := llm.NewClient(cfg.LLM, c.Logger)
	c.Service = app.NewAssessmentService(c.Registry, c.Overrides, llmClient, cfg.LLM.SystemPrompt, c.Logger)
	c.Progress = jobs.NewProgressBoard()

	return c, nil
}

// InitWithDatabase wires the components that need a database connection
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}

	repo := postgres.NewJobRepository(db)
	if impl, ok := repo.(*postgres.JobRepositoryImpl); ok {
		if err := impl.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	c.JobRepo = repo
	c.Worker = jobs.NewWorker(c.Service, c.JobRepo, c.Progress, c.Logger)
	c.Server = api.NewServer(c.Service, c.Worker, c.JobRepo, c.Progress, c.Logger)
	return nil
}

// Close releases held resources
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
