package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultWebhookTimeout bounds a delivery attempt when no override is given.
const defaultWebhookTimeout = 10 * time.Second

// DeliveryError reports a non-success webhook response.
type DeliveryError struct {
	// StatusCode is the HTTP status received.
	StatusCode int
	// Body is the trimmed response body, for diagnostics.
	Body string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery failed: status %d: %s", e.StatusCode, e.Body)
}

// WebhookChannel posts notifications to a Slack-compatible incoming webhook.
type WebhookChannel struct {
	name       string
	url        string
	headers    map[string]string
	httpClient *http.Client
}

// WebhookOption customizes a webhook channel.
type WebhookOption func(*WebhookChannel)

// WithTimeout bounds each delivery attempt.
func WithTimeout(timeout time.Duration) WebhookOption {
	return func(c *WebhookChannel) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to every delivery request.
func WithHeader(name string, value string) WebhookOption {
	return func(c *WebhookChannel) {
		c.headers[name] = value
	}
}

// NewWebhookChannel builds a webhook channel for the given delivery URL.
func NewWebhookChannel(name string, url string, options ...WebhookOption) *WebhookChannel {
	channel := &WebhookChannel{
		name:       name,
		url:        url,
		headers:    map[string]string{},
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
	}
	for _, option := range options {
		option(channel)
	}
	return channel
}

// webhookPayload is the Slack-compatible message body: a plain text fallback
// plus the optional block layout.
type webhookPayload struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

func (c *WebhookChannel) Name() string {
	return c.name
}

func (c *WebhookChannel) Supports(priority Priority) bool {
	return true
}

// Send posts the notification and treats any non-2xx response as a failed
// delivery.
func (c *WebhookChannel) Send(ctx context.Context, notification *Notification) error {
	text := notification.Body
	if notification.Title != "" {
		text = fmt.Sprintf("*%s*\n%s", notification.Title, notification.Body)
	}

	payload, err := json.Marshal(webhookPayload{Text: text, Blocks: notification.Blocks})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	for name, value := range c.headers {
		request.Header.Set(name, value)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return &DeliveryError{StatusCode: response.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
