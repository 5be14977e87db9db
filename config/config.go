package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the deskflow service, loaded
// from environment variables with optional .env support.
type Config struct {
	// HTTP server
	Addr string

	// LLM provider selection: openai, claude, gemini
	Provider string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	AnthropicAPIKey string
	AnthropicModel  string

	GeminiAPIKey string
	GeminiModel  string

	// Embeddings
	EmbeddingModel     string
	EmbeddingDimension int

	// Backend selection
	VectorBackend  string // inmemory, pg
	SessionBackend string // inmemory, redis
	TicketBackend  string // inmemory, postgres, mongo

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MongoURI      string
	MongoDatabase string

	// Pipeline tuning
	RefinementAttemptLimit int
	ProviderTimeout        time.Duration
	Temperature            float64

	// Observability
	LogLevel         string
	TelemetryDisable bool
	Environment      string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr: getEnv("DESKFLOW_ADDR", ":8080"),

		Provider: getEnv("DESKFLOW_PROVIDER", "openai"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		EmbeddingModel:     getEnv("DESKFLOW_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: getEnvInt("DESKFLOW_EMBEDDING_DIMENSION", 1536),

		VectorBackend:  getEnv("DESKFLOW_VECTOR_BACKEND", "inmemory"),
		SessionBackend: getEnv("DESKFLOW_SESSION_BACKEND", "inmemory"),
		TicketBackend:  getEnv("DESKFLOW_TICKET_BACKEND", "inmemory"),

		RedisAddr:     getEnv("DESKFLOW_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("DESKFLOW_REDIS_PASSWORD"),
		RedisDB:       getEnvInt("DESKFLOW_REDIS_DB", 0),

		PostgresHost:     getEnv("DESKFLOW_POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvInt("DESKFLOW_POSTGRES_PORT", 5432),
		PostgresUser:     getEnv("DESKFLOW_POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("DESKFLOW_POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnv("DESKFLOW_POSTGRES_DB", "deskflow"),
		PostgresSSLMode:  getEnv("DESKFLOW_POSTGRES_SSLMODE", "disable"),

		MongoURI:      getEnv("DESKFLOW_MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("DESKFLOW_MONGO_DATABASE", "deskflow"),

		RefinementAttemptLimit: getEnvInt("DESKFLOW_REFINEMENT_ATTEMPT_LIMIT", 3),
		ProviderTimeout:        getEnvDuration("DESKFLOW_PROVIDER_TIMEOUT", 30*time.Second),
		Temperature:            getEnvFloat("DESKFLOW_TEMPERATURE", 0.7),

		LogLevel:         getEnv("DESKFLOW_LOG_LEVEL", "info"),
		TelemetryDisable: getEnvBool("DESKFLOW_TELEMETRY_DISABLE", false),
		Environment:      getEnv("DESKFLOW_ENV", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	v := NewValidator()

	v.RequireNonEmpty("addr", c.Addr)
	v.ValidateOneOf("provider", c.Provider, "openai", "claude", "gemini")
	v.ValidateOneOf("vectorBackend", c.VectorBackend, "inmemory", "pg")
	v.ValidateOneOf("sessionBackend", c.SessionBackend, "inmemory", "redis")
	v.ValidateOneOf("ticketBackend", c.TicketBackend, "inmemory", "postgres", "mongo")
	v.RequirePositive("refinementAttemptLimit", c.RefinementAttemptLimit)
	v.RequirePositive("embeddingDimension", c.EmbeddingDimension)
	v.ValidateFloatRange("temperature", c.Temperature, 0.0, 2.0)
	v.ValidateOneOf("logLevel", c.LogLevel, "debug", "info", "warn", "error")

	if c.ProviderTimeout <= 0 {
		v.RequirePositive("providerTimeout", int(c.ProviderTimeout))
	}

	switch c.SessionBackend {
	case "redis":
		v.RequireNonEmpty("redisAddr", c.RedisAddr)
		v.ValidateRange("redisDB", c.RedisDB, 0, 15)
	}
	switch c.TicketBackend {
	case "postgres":
		v.RequireNonEmpty("postgresHost", c.PostgresHost)
		v.ValidatePort("postgresPort", c.PostgresPort)
		v.ValidateOneOf("postgresSSLMode", c.PostgresSSLMode, "disable", "require", "verify-ca", "verify-full")
	case "mongo":
		v.RequireNonEmpty("mongoURI", c.MongoURI)
		v.RequireNonEmpty("mongoDatabase", c.MongoDatabase)
	}

	return v.Error()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
