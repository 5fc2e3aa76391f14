// Package anthropic adapts the Anthropic Messages API to the uniform chat
// contract. Anthropic separates system prompts from the message list, so
// the first system message is extracted and sent out-of-band.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

const (
	providerName = "anthropic"
	apiVersion   = "2023-06-01"

	// The Messages API requires max_tokens; used when a request sets none.
	defaultMaxTokens = 1024
)

// Config contains Anthropic provider configuration.
type Config struct {
	APIKey  string `env:"ANTHROPIC_API_KEY"`
	BaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com/v1"`
	Model   string `env:"ANTHROPIC_MODEL"    envDefault:"claude-3-5-haiku-20241022"`
	Timeout int    `env:"ANTHROPIC_TIMEOUT"  envDefault:"60"`
}

// Provider implements domain.Provider for Anthropic.
type Provider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewProvider creates a new Anthropic provider.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, domain.ErrProviderNotConfigured
	}

	return &Provider{
		apiKey:       config.APIKey,
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		defaultModel: config.Model,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
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

type wireRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
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

	system, messages := splitSystem(req.Messages)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(wireRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.baseURL+"/messages",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	observability.FromContext(ctx).Debug("calling Anthropic API")

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	latency := time.Since(start)

	if err != nil {
		return &domain.ChatResponse{
			Provider:   providerName,
			Model:      model,
			StatusCode: 500,
			Latency:    latency,
			Error:      fmt.Sprintf("request failed: %v", err),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return p.classifyStatus(resp.StatusCode, string(raw), model, latency)
	}

	var decoded wireResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr != nil {
		return &domain.ChatResponse{
			Provider:   providerName,
			Model:      model,
			StatusCode: 500,
			Latency:    latency,
			Error:      fmt.Sprintf("failed to decode response: %v", decodeErr),
		}, nil
	}

	var text strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := &domain.ChatResponse{
		Provider:   providerName,
		Model:      decoded.Model,
		TokensIn:   decoded.Usage.InputTokens,
		TokensOut:  decoded.Usage.OutputTokens,
		StatusCode: resp.StatusCode,
		Latency:    latency,
	}
	if out.Model == "" {
		out.Model = model
	}

	if text.Len() == 0 {
		out.Error = "empty completion"
		return out, nil
	}

	out.Text = text.String()
	if out.TokensIn == 0 && out.TokensOut == 0 {
		// Vendor usage missing; fall back to the word-count estimate.
		out.TokensIn = domain.EstimateTokens(joinContents(req.Messages))
		out.TokensOut = domain.EstimateTokens(out.Text)
	}

	return out, nil
}

func joinContents(messages []domain.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

func (p *Provider) classifyStatus(
	status int,
	body, model string,
	latency time.Duration,
) (*domain.ChatResponse, error) {
	lower := strings.ToLower(body)

	switch {
	case status == http.StatusTooManyRequests ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota"):
		return nil, &domain.RateLimitError{Provider: providerName, Message: body}
	case status >= 500:
		return nil, &domain.APIError{Provider: providerName, StatusCode: status, Message: body}
	default:
		return &domain.ChatResponse{
			Provider:   providerName,
			Model:      model,
			StatusCode: status,
			Latency:    latency,
			Error:      fmt.Sprintf("API returned status %d: %s", status, body),
		}, nil
	}
}

// splitSystem extracts the first system message for out-of-band delivery
// and converts the remainder to wire messages.
func splitSystem(messages []domain.Message) (string, []wireMessage) {
	system := ""
	out := make([]wireMessage, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == "system" && system == "" {
			system = msg.Content
			continue
		}

		role := msg.Role
		if role != "assistant" {
			role = "user"
		}
		out = append(out, wireMessage{Role: role, Content: msg.Content})
	}

	return system, out
}
