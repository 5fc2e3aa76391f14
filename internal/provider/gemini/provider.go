// Package gemini adapts the Gemini API to the uniform chat contract using
// the google.golang.org/genai SDK. The text-generation call takes a single
// prompt, so the system message is folded into the prompt deterministically
// with an "Instructions:" prefix.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

const providerName = "gemini"

// Config contains Gemini provider configuration.
type Config struct {
	APIKey  string `env:"GEMINI_API_KEY"`
	Model   string `env:"GEMINI_MODEL"   envDefault:"gemini-1.5-flash"`
	Timeout int    `env:"GEMINI_TIMEOUT" envDefault:"60"`
}

// Provider implements domain.Provider for Gemini.
type Provider struct {
	client       *genai.Client
	defaultModel string
}

// NewProvider creates a new Gemini provider.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, domain.ErrProviderNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Provider{
		client:       client,
		defaultModel: config.Model,
	}, nil
}

// NewProviderFromClient wraps an existing genai client (used by tests).
func NewProviderFromClient(client *genai.Client, model string) *Provider {
	return &Provider{
		client:       client,
		defaultModel: model,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// DefaultModel returns the model used when a request names none.
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// Chat sends a chat request and returns the unified response.
func (p *Provider) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	prompt := FoldMessages(req.Messages)

	observability.FromContext(ctx).Debug("calling Gemini API")

	start := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	latency := time.Since(start)

	if err != nil {
		return p.classifyError(err, model, latency)
	}

	text := ""
	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			text += part.Text
		}
	}

	out := &domain.ChatResponse{
		Provider:   providerName,
		Model:      model,
		StatusCode: 200,
		Latency:    latency,
	}

	if result.UsageMetadata != nil {
		out.TokensIn = int(result.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(result.UsageMetadata.CandidatesTokenCount)
	}

	if text == "" {
		out.Error = "empty completion"
		return out, nil
	}

	out.Text = text
	if out.TokensIn == 0 && out.TokensOut == 0 {
		// Vendor usage missing; fall back to the word-count estimate.
		out.TokensIn = domain.EstimateTokens(prompt)
		out.TokensOut = domain.EstimateTokens(text)
	}

	return out, nil
}

// classifyError maps SDK errors onto the contract by message inspection:
// the genai SDK does not expose structured status codes for every failure.
func (p *Provider) classifyError(err error, model string, latency time.Duration) (*domain.ChatResponse, error) {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted"):
		return nil, &domain.RateLimitError{Provider: providerName, Message: err.Error()}
	case strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "internal") ||
		strings.Contains(msg, "overloaded"):
		return nil, &domain.APIError{Provider: providerName, StatusCode: 500, Message: err.Error()}
	default:
		return &domain.ChatResponse{
			Provider:   providerName,
			Model:      model,
			StatusCode: 500,
			Latency:    latency,
			Error:      fmt.Sprintf("Gemini call failed: %v", err),
		}, nil
	}
}

// FoldMessages flattens role-tagged messages into one prompt. The first
// system message becomes an "Instructions:" preamble; remaining messages
// are concatenated in order.
func FoldMessages(messages []domain.Message) string {
	var system string
	var parts []string

	for _, msg := range messages {
		if msg.Role == "system" && system == "" {
			system = msg.Content
			continue
		}
		parts = append(parts, msg.Content)
	}

	body := strings.Join(parts, "\n\n")
	if system == "" {
		return body
	}

	return "Instructions: " + system + "\n\n" + body
}
