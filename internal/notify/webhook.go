package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookNotifier posts signals to the notification service over HTTP
type WebhookNotifier struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{httpClient: client, logger: logger}
}

func (n *WebhookNotifier) Notify(ctx context.Context, signal Signal) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(signal).
		Post("")
	if err != nil {
		return fmt.Errorf("failed to call notification webhook: %w", err)
	}
	if resp.IsError() {
		n.logger.Error("Notification webhook rejected signal",
			zap.String("user_id", signal.ProfileID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode())
	}
	return nil
}
