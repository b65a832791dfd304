// Package notify delivers campaign lifecycle events to external listeners.
// Delivery is best-effort; failures are logged and swallowed.
package notify

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Notifier announces that a campaign account was created or changed.
type Notifier interface {
	Notify(campaignAddress string)
}

// Noop discards all notifications.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(string) {}

// Webhook posts campaign addresses to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// NewWebhook creates a webhook notifier.
func NewWebhook(url string, logger *log.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	CampaignAddress string `json:"campaignAddress"`
	Timestamp       int64  `json:"timestamp"`
}

// Notify posts the campaign address. Errors are logged, never returned;
// notification failure must not fail the operation that triggered it.
func (w *Webhook) Notify(campaignAddress string) {
	body, err := json.Marshal(webhookPayload{
		CampaignAddress: campaignAddress,
		Timestamp:       time.Now().UnixMilli(),
	})
	if err != nil {
		w.logf("marshal payload: %v", err)
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.logf("post %s: %v", w.url, err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.logf("post %s: unexpected status %d", w.url, resp.StatusCode)
	}
}

func (w *Webhook) logf(format string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Printf("[notify] "+format, args...)
	}
}
