// Package echo provides an offline provider that answers every question
// with a canned comparison list. It implements the uniform chat contract
// without network calls, which makes the audit and reinforcement pipelines
// runnable in development environments with no vendor keys.
package echo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/echorank/echorank/internal/domain"
)

const (
	providerName = "echo"
	modelName    = "echo-1"
)

// Provider implements domain.Provider for offline development.
type Provider struct {
	// Entries listed in every canned answer, in order.
	entries []string
}

// NewProvider creates an echo provider. entries become the canned ranked
// list; when empty the provider echoes the question back instead.
func NewProvider(entries []string) *Provider {
	return &Provider{entries: entries}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// DefaultModel returns the model used when a request names none.
func (p *Provider) DefaultModel() string {
	return modelName
}

// Chat returns a deterministic canned response.
func (p *Provider) Chat(_ context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	question := lastUserMessage(req.Messages)
	text := p.render(question)

	prompt := question
	return &domain.ChatResponse{
		Provider:   providerName,
		Model:      modelName,
		Text:       text,
		TokensIn:   domain.EstimateTokens(prompt),
		TokensOut:  domain.EstimateTokens(text),
		StatusCode: 200,
		Latency:    time.Millisecond,
	}, nil
}

func (p *Provider) render(question string) string {
	if len(p.entries) == 0 {
		return "You asked: " + question
	}

	var b strings.Builder
	b.WriteString("Here are the top options:\n")
	for i, entry := range p.entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, entry)
	}
	return b.String()
}

func lastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
