// Package config loads process configuration from the environment, with
// optional .env overrides for development.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	embeddingopenai "github.com/echorank/echorank/internal/embedding/openai"
	"github.com/echorank/echorank/internal/provider/anthropic"
	"github.com/echorank/echorank/internal/provider/gemini"
	"github.com/echorank/echorank/internal/provider/mistral"
	"github.com/echorank/echorank/internal/provider/openai"
	"github.com/echorank/echorank/internal/provider/perplexity"
)

// Config is the full process configuration.
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	DB     DBConfig
	Redis  RedisConfig

	OpenAI     openai.Config
	Anthropic  anthropic.Config
	Gemini     gemini.Config
	Perplexity perplexity.Config
	Mistral    mistral.Config
	Embedding  embeddingopenai.Config

	Audit     AuditConfig
	Reinforce ReinforceConfig
	Gates     GatesConfig
	Jobs      JobsConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"120"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// DBConfig contains SQLite settings.
type DBConfig struct {
	Path string `env:"DB_PATH" envDefault:"echorank.db"`
}

// RedisConfig contains embedding-cache settings. An empty address disables
// the cache; embeddings are then generated directly on every call.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// AuditConfig contains audit pipeline settings.
type AuditConfig struct {
	MaxConcurrent int `env:"AUDIT_MAX_CONCURRENT" envDefault:"5"`
	IntentLimit   int `env:"AUDIT_INTENT_LIMIT"   envDefault:"0"`
}

// ReinforceConfig contains reinforcement pipeline settings.
type ReinforceConfig struct {
	PromptCount   int `env:"REINFORCE_PROMPT_COUNT"   envDefault:"10"`
	CooldownHours int `env:"REINFORCE_COOLDOWN_HOURS" envDefault:"24"`
}

// GatesConfig contains content-gate thresholds.
type GatesConfig struct {
	MinReadability        float64 `env:"GATES_MIN_READABILITY"          envDefault:"55"`
	MinSimilarityToGolden float64 `env:"GATES_MIN_SIMILARITY_TO_GOLDEN" envDefault:"0.8"`
	DisableForbiddenGate  bool    `env:"GATES_DISABLE_FORBIDDEN"        envDefault:"false"`
}

// JobsConfig contains job notification settings.
type JobsConfig struct {
	WebhookURL string `env:"JOBS_WEBHOOK_URL"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*DBConfig
	*RedisConfig
	*AuditConfig
	*ReinforceConfig
	*GatesConfig
	*JobsConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.DB,
		&cfg.Redis,
		&cfg.Audit,
		&cfg.Reinforce,
		&cfg.Gates,
		&cfg.Jobs,
	}
}
