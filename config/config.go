package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration. It is built once
// at startup, validated, and treated as immutable afterwards.
type Config struct {
	Server        ServerConfig
	AzureOpenAI   AzureOpenAIConfig
	Search        SearchConfig
	Authorization AuthorizationConfig
	Retrieval     RetrievalConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AzureOpenAIConfig holds the embedding and completion backend configuration
type AzureOpenAIConfig struct {
	Endpoint string
	APIKey   string
	// BearerToken is the ambient-credential alternative to APIKey; the
	// client uses APIKey when both are set.
	BearerToken         string
	APIVersion          string
	ChatDeployment      string
	EmbeddingDeployment string
	Timeout             time.Duration
}

// SearchConfig holds the retrieval backend configuration
type SearchConfig struct {
	Endpoint   string
	APIKey     string
	Index      string
	APIVersion string
	Timeout    time.Duration
}

// AuthorizationConfig holds identity and policy configuration
type AuthorizationConfig struct {
	Instance                 string
	TenantID                 string
	Audience                 string
	RequiredRole             string
	AllowedAppIDs            []string
	AllowAnyAppWhenListEmpty bool
	BypassAuthInDevelopment  bool
}

// RetrievalConfig holds the pipeline tuning knobs
type RetrievalConfig struct {
	// TopK is the number of nearest-neighbor chunks requested per query.
	TopK int
	// MaxContextChars is the character budget for assembled context.
	// Must be at least MinContextChars.
	MaxContextChars int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// MinContextChars is the smallest context budget the service accepts.
const MinContextChars = 2000

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		AzureOpenAI: AzureOpenAIConfig{
			Endpoint:            getEnv("AZURE_OPENAI_ENDPOINT", ""),
			APIKey:              getEnv("AZURE_OPENAI_KEY", ""),
			BearerToken:         getEnv("AZURE_OPENAI_BEARER_TOKEN", ""),
			APIVersion:          getEnv("AZURE_OPENAI_API_VERSION", "2024-02-01"),
			ChatDeployment:      getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT", ""),
			EmbeddingDeployment: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", ""),
			Timeout:             getEnvAsDuration("AZURE_OPENAI_TIMEOUT", 60*time.Second),
		},
		Search: SearchConfig{
			Endpoint:   getEnv("AZURE_SEARCH_ENDPOINT", ""),
			APIKey:     getEnv("AZURE_SEARCH_KEY", ""),
			Index:      getEnv("AZURE_SEARCH_INDEX", ""),
			APIVersion: getEnv("AZURE_SEARCH_API_VERSION", "2023-11-01"),
			Timeout:    getEnvAsDuration("AZURE_SEARCH_TIMEOUT", 30*time.Second),
		},
		Authorization: AuthorizationConfig{
			Instance:                 getEnv("AZURE_AD_INSTANCE", "https://login.microsoftonline.com/"),
			TenantID:                 getEnv("AZURE_AD_TENANT_ID", ""),
			Audience:                 getEnv("AZURE_AD_AUDIENCE", ""),
			RequiredRole:             getEnv("AUTH_REQUIRED_ROLE", "Api.Access"),
			AllowedAppIDs:            getEnvAsSlice("AUTH_ALLOWED_APP_IDS", nil),
			AllowAnyAppWhenListEmpty: getEnvAsBool("AUTH_ALLOW_ANY_APP", false),
			BypassAuthInDevelopment:  getEnvAsBool("AUTH_BYPASS_IN_DEVELOPMENT", false),
		},
		Retrieval: RetrievalConfig{
			TopK:            getEnvAsInt("RETRIEVAL_TOP_K", 5),
			MaxContextChars: getEnvAsInt("RETRIEVAL_MAX_CONTEXT_CHARS", 12000),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set. Invalid
// configuration aborts startup; nothing here is deferred to request time.
func (c *Config) Validate() error {
	if c.AzureOpenAI.Endpoint == "" {
		return fmt.Errorf("azure openai endpoint is required")
	}
	if c.AzureOpenAI.ChatDeployment == "" {
		return fmt.Errorf("azure openai chat deployment is required")
	}
	if c.AzureOpenAI.EmbeddingDeployment == "" {
		return fmt.Errorf("azure openai embedding deployment is required")
	}
	if c.AzureOpenAI.APIKey == "" && c.AzureOpenAI.BearerToken == "" {
		return fmt.Errorf("azure openai credential is required: set AZURE_OPENAI_KEY or AZURE_OPENAI_BEARER_TOKEN")
	}

	if c.Search.Endpoint == "" {
		return fmt.Errorf("search endpoint is required")
	}
	if c.Search.Index == "" {
		return fmt.Errorf("search index is required")
	}
	if c.Search.APIKey == "" {
		return fmt.Errorf("search API key is required")
	}

	if c.Authorization.RequiredRole == "" {
		return fmt.Errorf("required role is required")
	}
	if c.IsProduction() {
		if c.Authorization.TenantID == "" {
			return fmt.Errorf("tenant ID is required in production")
		}
		if c.Authorization.Audience == "" {
			return fmt.Errorf("audience is required in production")
		}
	}

	// An empty allow-list with open access disabled would deny every request;
	// refuse to start rather than serve a dead endpoint. Development is the
	// one environment where this is tolerated.
	if len(c.Authorization.AllowedAppIDs) == 0 &&
		!c.Authorization.AllowAnyAppWhenListEmpty &&
		!c.IsDevelopment() {
		return fmt.Errorf("application allow-list is empty and AUTH_ALLOW_ANY_APP is false")
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top-k must be positive")
	}
	if c.Retrieval.MaxContextChars < MinContextChars {
		return fmt.Errorf("max context chars must be at least %d, got %d", MinContextChars, c.Retrieval.MaxContextChars)
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// BypassAuth reports whether authentication may be skipped for this process.
// The bypass flag only has effect in development.
func (c *Config) BypassAuth() bool {
	return c.IsDevelopment() && c.Authorization.BypassAuthInDevelopment
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice parses a comma-separated list, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
