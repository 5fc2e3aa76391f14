// Package openai adapts the OpenAI API to the uniform chat contract using
// the official SDK. Ordinary call failures become error-populated
// responses; only rate-limit and 5xx conditions surface as errors for the
// retry layer.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

const providerName = "openai"

// Provider implements domain.Provider for OpenAI.
type Provider struct {
	client       openai.Client
	defaultModel string
}

// NewProvider creates a new OpenAI provider.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, domain.ErrProviderNotConfigured
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		// The ratelimit package owns retries; disable the SDK's.
		option.WithMaxRetries(0),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	return &Provider{
		client:       openai.NewClient(opts...),
		defaultModel: config.Model,
	}, nil
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

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API")

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, p.toSDKParams(model, req))
	latency := time.Since(start)

	if err != nil {
		return p.classifyError(err, model, latency)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	out := &domain.ChatResponse{
		Provider:   providerName,
		Model:      string(resp.Model),
		TokensIn:   int(resp.Usage.PromptTokens),
		TokensOut:  int(resp.Usage.CompletionTokens),
		StatusCode: 200,
		Latency:    latency,
	}

	if text == "" {
		out.Error = "empty completion"
		return out, nil
	}

	out.Text = text
	if out.TokensIn == 0 && out.TokensOut == 0 {
		// Vendor usage missing; fall back to the word-count estimate.
		out.TokensIn = domain.EstimateTokens(promptText(req.Messages))
		out.TokensOut = domain.EstimateTokens(text)
	}

	return out, nil
}

// classifyError maps an SDK error onto the contract: 429/quota signals and
// 5xx statuses surface as retryable errors, anything else becomes a
// response-level failure.
func (p *Provider) classifyError(err error, model string, latency time.Duration) (*domain.ChatResponse, error) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429 || isRateLimitMessage(err.Error()):
			return nil, &domain.RateLimitError{Provider: providerName, Message: err.Error()}
		case apiErr.StatusCode >= 500:
			return nil, &domain.APIError{
				Provider:   providerName,
				StatusCode: apiErr.StatusCode,
				Message:    err.Error(),
			}
		default:
			return &domain.ChatResponse{
				Provider:   providerName,
				Model:      model,
				StatusCode: apiErr.StatusCode,
				Latency:    latency,
				Error:      err.Error(),
			}, nil
		}
	}

	if isRateLimitMessage(err.Error()) {
		return nil, &domain.RateLimitError{Provider: providerName, Message: err.Error()}
	}

	return &domain.ChatResponse{
		Provider:   providerName,
		Model:      model,
		StatusCode: 500,
		Latency:    latency,
		Error:      fmt.Sprintf("OpenAI call failed: %v", err),
	}, nil
}

func (p *Provider) toSDKParams(model string, req *domain.ChatRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, len(req.Messages))
	for i, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			messages[i] = openai.AssistantMessage(msg.Content)
		case "system":
			messages[i] = openai.SystemMessage(msg.Content)
		default:
			messages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params
}

func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota")
}

func promptText(messages []domain.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " ")
}
