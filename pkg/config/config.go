package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by MESSAGE_BACKEND / ADMIN_BACKEND
const (
	BackendGitHub = "github"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	// GitHub holds the coordinates of the fixed comment thread
	GitHub struct {
		Owner       string
		Repo        string
		IssueNumber int
		Token       string
		BaseURL     string
		PerPage     int
		Timeout     time.Duration
	}

	// Store selects and configures message persistence
	Store struct {
		Backend      string
		AdminBackend string
		Dir          string
		File         string
	}

	// Redis configuration, only used by the redis backend
	Redis struct {
		URL string
		Key string
	}

	// Security configuration
	Security struct {
		RateLimit        float64
		RateLimitBurst   int
		AllowedOrigins   []string
		MaxContentLength int
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Observability configuration
	Observability struct {
		TracingEnabled bool
		MetricsPath    string
		HealthPeriod   time.Duration
	}

	// API holds request validation settings
	API struct {
		SchemaPath       string
		ValidateRequests bool
	}

	// Vault configures secret resolution through HashiCorp Vault
	Vault struct {
		Enabled     bool
		Address     string
		Token       string
		Namespace   string
		Mount       string
		SecretsPath string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates the singleton Config instance from the environment.
// A .env file is loaded first when present.
func New() *Config {
	once.Do(func() {
		godotenv.Load()
		instance = Load()
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load reads a fresh Config from the current environment without touching the singleton
func Load() *Config {
	cfg := &Config{}

	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

	cfg.GitHub.Owner = getEnvString("GITHUB_OWNER", "zhanzhan-21")
	cfg.GitHub.Repo = getEnvString("GITHUB_REPO", "zhanzhan-21.github.io")
	cfg.GitHub.IssueNumber = getEnvInt("GITHUB_ISSUE_NUMBER", 1)
	cfg.GitHub.Token = getEnvString("GITHUB_TOKEN", "")
	cfg.GitHub.BaseURL = getEnvString("GITHUB_API_URL", "https://api.github.com")
	cfg.GitHub.PerPage = getEnvInt("GITHUB_PER_PAGE", 100)
	cfg.GitHub.Timeout = getEnvDuration("GITHUB_TIMEOUT", 10*time.Second)

	cfg.Store.Backend = strings.ToLower(getEnvString("MESSAGE_BACKEND", BackendGitHub))
	cfg.Store.AdminBackend = strings.ToLower(getEnvString("ADMIN_BACKEND", BackendFile))
	cfg.Store.Dir = getEnvString("MESSAGE_STORE_DIR", "data")
	cfg.Store.File = getEnvString("MESSAGE_STORE_FILE", "messages.json")

	cfg.Redis.URL = getEnvString("REDIS_URL", "redis://localhost:6379/0")
	cfg.Redis.Key = getEnvString("REDIS_KEY_PREFIX", "messageboard")

	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 1)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 5)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.MaxContentLength = getEnvInt("MESSAGE_MAX_LENGTH", 2000)

	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.Observability.MetricsPath = getEnvString("METRICS_PATH", "/metrics")
	cfg.Observability.HealthPeriod = getEnvDuration("HEALTH_CHECK_PERIOD", 5*time.Minute)

	cfg.API.SchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "api/openapi.yaml")
	cfg.API.ValidateRequests = getEnvBool("OPENAPI_VALIDATION", true)

	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.Mount = getEnvString("VAULT_MOUNT", "secret")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "messageboard")

	return cfg
}

// IsDevelopment reports whether stack traces may be exposed in responses
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
