// Package openaicompat implements the uniform chat contract over any
// vendor exposing an OpenAI-compatible /chat/completions endpoint
// (Perplexity, Mistral). Each vendor package wraps this client with its
// own name, base URL and defaults.
package openaicompat

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

// Client is a minimal OpenAI-compatible chat client.
type Client struct {
	providerName string
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewClient creates a client for one OpenAI-compatible vendor.
func NewClient(providerName, apiKey, baseURL, defaultModel string, timeout time.Duration) *Client {
	return &Client{
		providerName: providerName,
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the wrapped vendor's identifier.
func (c *Client) Name() string {
	return c.providerName
}

// DefaultModel returns the model used when a request names none.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

type wireRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature,omitempty"`
	TopP        float64          `json:"top_p,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type wireResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends a chat request and returns the unified response.
func (c *Client) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if c.apiKey == "" {
		return nil, domain.ErrProviderNotConfigured
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(wireRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	logger := observability.FromContext(ctx)
	logger.Debug("calling chat completions", observability.String("base_url", c.baseURL))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(start)

	if err != nil {
		// Network failures and timeouts are per-call permanent failures.
		return &domain.ChatResponse{
			Provider:   c.providerName,
			Model:      model,
			StatusCode: 500,
			Latency:    latency,
			Error:      fmt.Sprintf("request failed: %v", err),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return c.classifyStatus(resp.StatusCode, string(raw), model, latency)
	}

	var decoded wireResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr != nil {
		return &domain.ChatResponse{
			Provider:   c.providerName,
			Model:      model,
			StatusCode: 500,
			Latency:    latency,
			Error:      fmt.Sprintf("failed to decode response: %v", decodeErr),
		}, nil
	}

	text := ""
	if len(decoded.Choices) > 0 {
		text = decoded.Choices[0].Message.Content
	}

	out := &domain.ChatResponse{
		Provider:   c.providerName,
		Model:      decoded.Model,
		TokensIn:   decoded.Usage.PromptTokens,
		TokensOut:  decoded.Usage.CompletionTokens,
		StatusCode: resp.StatusCode,
		Latency:    latency,
	}
	if out.Model == "" {
		out.Model = model
	}

	if text == "" {
		out.Error = "empty completion"
		return out, nil
	}

	out.Text = text
	if out.TokensIn == 0 && out.TokensOut == 0 {
		// Vendor usage missing; fall back to the word-count estimate.
		out.TokensIn = domain.EstimateTokens(joinContents(req.Messages))
		out.TokensOut = domain.EstimateTokens(text)
	}

	return out, nil
}

func (c *Client) classifyStatus(
	status int,
	body, model string,
	latency time.Duration,
) (*domain.ChatResponse, error) {
	lower := strings.ToLower(body)

	switch {
	case status == http.StatusTooManyRequests ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota"):
		return nil, &domain.RateLimitError{Provider: c.providerName, Message: body}
	case status >= 500:
		return nil, &domain.APIError{Provider: c.providerName, StatusCode: status, Message: body}
	default:
		return &domain.ChatResponse{
			Provider:   c.providerName,
			Model:      model,
			StatusCode: status,
			Latency:    latency,
			Error:      fmt.Sprintf("API returned status %d: %s", status, body),
		}, nil
	}
}

func joinContents(messages []domain.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " ")
}
