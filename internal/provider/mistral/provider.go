// Package mistral adapts Mistral's OpenAI-compatible API to the uniform
// chat contract.
package mistral

import (
	"time"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/provider/openaicompat"
)

// Config contains Mistral provider configuration.
type Config struct {
	APIKey  string `env:"MISTRAL_API_KEY"`
	BaseURL string `env:"MISTRAL_BASE_URL" envDefault:"https://api.mistral.ai/v1"`
	Model   string `env:"MISTRAL_MODEL"    envDefault:"mistral-small-latest"`
	Timeout int    `env:"MISTRAL_TIMEOUT"  envDefault:"60"`
}

// NewProvider creates a new Mistral provider.
func NewProvider(config Config) (domain.Provider, error) {
	if config.APIKey == "" {
		return nil, domain.ErrProviderNotConfigured
	}

	return openaicompat.NewClient(
		"mistral",
		config.APIKey,
		config.BaseURL,
		config.Model,
		time.Duration(config.Timeout)*time.Second,
	), nil
}
