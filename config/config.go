package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Data          DataConfig
	Embedding     EmbeddingConfig
	Generation    GenerationConfig
	Pipeline      PipelineConfig
	Admin         AdminConfig
	Database      *DatabaseConfig // Optional: audit log persistence. When nil, audit keeps counters only.
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

// DataConfig holds the on-disk layout of the case corpus and its indexes.
type DataConfig struct {
	DataDir   string
	CasesPath string // source dataset consumed by the indexer
	IndexDir  string
}

// EmbeddingConfig holds embedding provider configuration.
// Provider is "openai" or "local"; "local" requires no credentials and
// is the default for development.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	Dimension  int
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// GenerationConfig holds the LLM used for answer synthesis.
type GenerationConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// PipelineConfig holds the per-operation time budgets.
type PipelineConfig struct {
	SearchTimeout time.Duration
	CoachTimeout  time.Duration
}

// AdminConfig holds authentication for privileged endpoints.
type AdminConfig struct {
	JWTSecret string
}

// DatabaseConfig holds PostgreSQL configuration for the audit log.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists (backend/.env when run from project root, .env when run from backend/)
	_ = godotenv.Load("backend/.env")
	_ = godotenv.Load(".env")

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Data: DataConfig{
			DataDir:   dataDir,
			CasesPath: getEnv("CASES_PATH", filepath.Join(dataDir, "counseling_cases.json")),
			IndexDir:  getEnv("INDEX_DIR", filepath.Join(dataDir, "indices")),
		},
		Embedding: EmbeddingConfig{
			Provider:   getEnv("EMBED_PROVIDER", "local"),
			Model:      getEnv("EMBED_MODEL", "text-embedding-3-small"),
			Dimension:  getEnvAsInt("EMBED_DIMENSION", 1536),
			APIKey:     getEnv("LLM_API_KEY", ""),
			BaseURL:    getEnv("EMBED_BASE_URL", "https://api.openai.com/v1"),
			Timeout:    getEnvAsDuration("EMBED_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvAsInt("EMBED_MAX_RETRIES", 3),
		},
		Generation: GenerationConfig{
			APIKey:      getEnv("LLM_API_KEY", ""),
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 1024),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			SearchTimeout: getEnvAsDuration("SEARCH_TIMEOUT", 10*time.Second),
			CoachTimeout:  getEnvAsDuration("COACH_TIMEOUT", 20*time.Second),
		},
		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
		Database: loadDatabaseConfig(),
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

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Data.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.Data.IndexDir == "" {
		return fmt.Errorf("index directory is required")
	}

	switch c.Embedding.Provider {
	case "local":
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required when EMBED_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown embedding provider %q: must be openai or local", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	if c.IsProduction() {
		if c.Generation.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required in production")
		}
		if c.Admin.JWTSecret == "" {
			return fmt.Errorf("ADMIN_JWT_SECRET is required in production")
		}
	}

	if c.Pipeline.SearchTimeout <= 0 {
		return fmt.Errorf("search timeout must be positive")
	}
	if c.Pipeline.CoachTimeout <= 0 {
		return fmt.Errorf("coach timeout must be positive")
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

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads audit DB config from DATABASE_URL.
// Returns nil when not set; audit persistence is optional.
func loadDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dbURL,
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
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
