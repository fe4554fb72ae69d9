package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Emitter delivers a notification payload to the presenting surface.
type Emitter interface {
	Emit(ctx context.Context, n Notification) error
}

// --------------------------------------------------------------------------
// Log emitter — default delivery when no webhook is configured
// --------------------------------------------------------------------------

// LogEmitter writes emissions to the structured log. Stands in for a push
// transport in development and database-less runs.
type LogEmitter struct {
	logger *slog.Logger
}

func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Emit(_ context.Context, n Notification) error {
	e.logger.Info("notification emitted",
		"id", n.ID,
		"class", n.Class,
		"title", n.Title,
		"deep_link", n.Data.DeepLink,
		"stream_id", n.Data.StreamID)
	return nil
}

// --------------------------------------------------------------------------
// Webhook emitter — POSTs payloads to an external presenter
// --------------------------------------------------------------------------

const webhookTimeout = 10 * time.Second

// WebhookEmitter posts each notification as JSON to a configured endpoint
// (the push gateway fronting the mobile presenter).
type WebhookEmitter struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookEmitter creates a webhook emitter. Returns nil if url is empty
// so callers can fall back to the log emitter.
func NewWebhookEmitter(url string, logger *slog.Logger) *WebhookEmitter {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookEmitter{
		url:        url,
		httpClient: &http.Client{Timeout: webhookTimeout},
		logger:     logger,
	}
}

func (e *WebhookEmitter) Emit(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}

	e.logger.Info("notification delivered", "id", n.ID, "class", n.Class)
	return nil
}
