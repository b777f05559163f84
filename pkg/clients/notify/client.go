package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/jewelstock/internal/config"
)

// Client exposes the outbound notification operations used by the application.
type Client interface {
	SendText(ctx context.Context, text string) error
}

// WebhookClient posts messages to an incoming-webhook URL (Slack, Google Chat
// and Mattermost all accept a {"text": ...} body).
type WebhookClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook client using the provided configuration values.
func NewClient(cfg config.NotifyConfig) *WebhookClient {
	restyClient := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &WebhookClient{
		httpClient: restyClient,
		url:        cfg.WebhookURL,
	}
}

// apiError captures the body of a rejected webhook call.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SendText posts text to the webhook.
func (c *WebhookClient) SendText(ctx context.Context, text string) error {
	if c.url == "" {
		return fmt.Errorf("notify webhook url is not configured")
	}

	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"text": text}).
		SetError(apiErr).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		if message == "" {
			message = resp.String()
		}
		return fmt.Errorf("notify webhook error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return nil
}
