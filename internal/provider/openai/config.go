package openai

// Config contains OpenAI provider configuration.
type Config struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL"`
	Model   string `env:"OPENAI_MODEL"   envDefault:"gpt-4o-mini"`
	Timeout int    `env:"OPENAI_TIMEOUT" envDefault:"60"`
}
