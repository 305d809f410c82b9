package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// WebhookPusher delivers notifications by POSTing them to an external push
// gateway. The gateway owns the actual device delivery.
type WebhookPusher struct {
	url    string
	client *http.Client
}

func NewWebhookPusher(url string) *WebhookPusher {
	return &WebhookPusher{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

var _ Pusher = (*WebhookPusher)(nil)

func (p *WebhookPusher) Send(ctx context.Context, token string, n Notification) error {
	payload, err := json.Marshal(map[string]any{
		"token": token,
		"notification": map[string]string{
			"title": n.Title,
			"body":  n.Body,
		},
		"data": n.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %s", resp.Status)
	}
	return nil
}

// LogPusher is the development fallback used when no gateway is configured.
type LogPusher struct{}

var _ Pusher = LogPusher{}

func (LogPusher) Send(_ context.Context, token string, n Notification) error {
	log.Printf("push: [dry-run] to=%s title=%q body=%q", token, n.Title, n.Body)
	return nil
}
