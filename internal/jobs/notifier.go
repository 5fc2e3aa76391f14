package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

const webhookTimeout = 10 * time.Second

// LogNotifier writes completion events to the log. The default sink when no
// webhook is configured.
type LogNotifier struct{}

// Notify implements domain.Notifier.
func (LogNotifier) Notify(ctx context.Context, event domain.JobEvent) {
	observability.FromContext(ctx).Info("job event",
		observability.String("job", event.Name),
		observability.Bool("success", event.Success),
		observability.Duration("duration", event.Duration))
}

// WebhookNotifier POSTs completion events as JSON to a configured URL.
// Delivery errors are logged and swallowed; a broken webhook never fails a
// job.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// Notify implements domain.Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event domain.JobEvent) {
	logger := observability.FromContext(ctx)

	body, err := json.Marshal(event)
	if err != nil {
		logger.Warn("failed to encode job event", observability.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		logger.Warn("failed to build webhook request", observability.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		logger.Warn("webhook delivery failed", observability.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logger.Warn("webhook rejected job event",
			observability.Int("status", resp.StatusCode))
	}
}
