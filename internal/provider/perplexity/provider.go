// Package perplexity adapts Perplexity's OpenAI-compatible API to the
// uniform chat contract.
package perplexity

import (
	"time"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/provider/openaicompat"
)

// Config contains Perplexity provider configuration.
type Config struct {
	APIKey  string `env:"PERPLEXITY_API_KEY"`
	BaseURL string `env:"PERPLEXITY_BASE_URL" envDefault:"https://api.perplexity.ai"`
	Model   string `env:"PERPLEXITY_MODEL"    envDefault:"sonar"`
	Timeout int    `env:"PERPLEXITY_TIMEOUT"  envDefault:"60"`
}

// NewProvider creates a new Perplexity provider.
func NewProvider(config Config) (domain.Provider, error) {
	if config.APIKey == "" {
		return nil, domain.ErrProviderNotConfigured
	}

	return openaicompat.NewClient(
		"perplexity",
		config.APIKey,
		config.BaseURL,
		config.Model,
		time.Duration(config.Timeout)*time.Second,
	), nil
}
