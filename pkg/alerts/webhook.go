package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
)

// WebhookNotifier sends alerts to a generic HTTP webhook.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookNotifier creates a generic webhook notifier.
// If secret is non-empty, requests are signed with HMAC-SHA256.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	if alert.Message == nil {
		return fmt.Errorf("webhook alert has no message")
	}
	used, total := alert.Message.Counts()
	payload := webhookPayload{
		Event:     "license_report",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		OrgID:     alert.OrgID,
		Level:     alert.Level,
		Used:      used,
		Total:     total,
		Text:      alert.Text,
	}
	switch m := alert.Message.(type) {
	case model.Overage:
		payload.Excess = m.Excess
	case model.WithinLimit:
		payload.Available = m.Available
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &model.DeliveryError{Sink: w.Name(), Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "miroguard/1.0")

	if w.secret != "" {
		sig := computeHMAC(body, []byte(w.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &model.DeliveryError{Sink: w.Name(), Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.DeliveryError{Sink: w.Name(), StatusCode: resp.StatusCode}
	}
	return nil
}

type webhookPayload struct {
	Event     string     `json:"event"`
	Timestamp string     `json:"timestamp"`
	OrgID     string     `json:"org_id,omitempty"`
	Level     AlertLevel `json:"level"`
	Used      int        `json:"used"`
	Total     int        `json:"total"`
	Available int        `json:"available"`
	Excess    int        `json:"excess"`
	Text      string     `json:"text"`
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
