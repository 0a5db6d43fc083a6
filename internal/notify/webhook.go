package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

// Notifier 报警通知通道
type Notifier interface {
	// NotifyAlert 投递一条报警（尽力而为，不保证恰好一次）
	NotifyAlert(ctx context.Context, alert *models.Alert) error
}

// WebhookNotifier 向配置的 Webhook 地址 POST 报警 JSON
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewWebhookNotifier 创建 Webhook 通知器
func NewWebhookNotifier(url string, timeout time.Duration, retryCount int, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

// NotifyAlert 投递报警
func (n *WebhookNotifier) NotifyAlert(ctx context.Context, alert *models.Alert) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(alert).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to deliver alert %s: %w", alert.ID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %d for alert %s", resp.StatusCode(), alert.ID)
	}

	n.logger.Debug("Alert delivered to webhook",
		zap.String("alert_id", alert.ID),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}

// NopNotifier 空通知器（未配置 Webhook 时使用）
type NopNotifier struct{}

// NotifyAlert 空操作
func (NopNotifier) NotifyAlert(ctx context.Context, alert *models.Alert) error {
	return nil
}
