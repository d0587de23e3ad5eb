package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/legalrag/rag-service/auth"
	"github.com/legalrag/rag-service/clients/azureopenai"
	"github.com/legalrag/rag-service/clients/azuresearch"
	"github.com/legalrag/rag-service/config"
	"github.com/legalrag/rag-service/handlers"
	"github.com/legalrag/rag-service/middleware"
	"github.com/legalrag/rag-service/services/answer"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Clients
	OpenAIClient *azureopenai.Client
	SearchClient *azuresearch.Client

	// Services
	AnswerService *answer.Service

	// HTTP layer
	AskHandler     *handlers.AskHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initClients(cfg)
	deps.initServices(cfg)
	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.AskHandler = handlers.NewAskHandler(deps.AnswerService, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initClients builds the Azure OpenAI and Azure AI Search REST clients
func (d *Dependencies) initClients(cfg *config.Config) {
	d.OpenAIClient = azureopenai.New(azureopenai.Config{
		Endpoint:            cfg.AzureOpenAI.Endpoint,
		APIKey:              cfg.AzureOpenAI.APIKey,
		BearerToken:         cfg.AzureOpenAI.BearerToken,
		APIVersion:          cfg.AzureOpenAI.APIVersion,
		ChatDeployment:      cfg.AzureOpenAI.ChatDeployment,
		EmbeddingDeployment: cfg.AzureOpenAI.EmbeddingDeployment,
		Timeout:             cfg.AzureOpenAI.Timeout,
	})

	d.SearchClient = azuresearch.New(azuresearch.Config{
		Endpoint:   cfg.Search.Endpoint,
		APIKey:     cfg.Search.APIKey,
		Index:      cfg.Search.Index,
		APIVersion: cfg.Search.APIVersion,
		Timeout:    cfg.Search.Timeout,
	})

	d.Logger.Info("clients initialized",
		zap.String("openai_endpoint", cfg.AzureOpenAI.Endpoint),
		zap.String("search_index", cfg.Search.Index))
}

// initServices builds the question answering pipeline
func (d *Dependencies) initServices(cfg *config.Config) {
	d.AnswerService = answer.NewService(
		d.OpenAIClient,
		d.SearchClient,
		d.OpenAIClient,
		cfg.Retrieval.TopK,
		cfg.Retrieval.MaxContextChars,
		d.Logger,
	)

	d.Logger.Info("answer service initialized",
		zap.Int("top_k", cfg.Retrieval.TopK),
		zap.Int("max_context_chars", cfg.Retrieval.MaxContextChars))
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	policy := auth.PolicyConfig{
		RequiredRole:             cfg.Authorization.RequiredRole,
		AllowedAppIDs:            cfg.Authorization.AllowedAppIDs,
		AllowAnyAppWhenListEmpty: cfg.Authorization.AllowAnyAppWhenListEmpty,
	}

	if cfg.Authorization.TenantID == "" {
		if !cfg.BypassAuth() {
			return fmt.Errorf("tenant ID is not configured and auth bypass is not active")
		}
		d.Logger.Warn("identity provider not configured, auth bypass active")
		d.AuthMiddleware = middleware.NewAuthMiddleware(&rejectAllValidator{}, policy, true, d.Logger)
		return nil
	}

	validator := auth.NewEntraValidator(auth.ValidatorConfig{
		Instance: cfg.Authorization.Instance,
		TenantID: cfg.Authorization.TenantID,
		Audience: cfg.Authorization.Audience,
	})

	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, policy, cfg.BypassAuth(), d.Logger)

	d.Logger.Info("auth middleware initialized",
		zap.String("tenant_id", cfg.Authorization.TenantID),
		zap.Bool("bypass", cfg.BypassAuth()))
	return nil
}

// rejectAllValidator rejects all tokens (used when no identity provider is
// configured; reachable only with bypass active, where a presented token is
// still refused)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*auth.ClaimsContext, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close() {
	d.Logger.Info("shutting down dependencies")

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
}
