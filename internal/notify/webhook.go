package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fau-events/internal/config"
	"github.com/fau-events/internal/model"
)

// webhookMessage is the Discord-compatible body also accepted by Slack-style
// incoming webhooks through the content field.
type webhookMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

type webhookEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Fields      []webhookField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

const alertColor = 0xED4245

// WebhookAlerter posts failed deliveries to the board's chat webhook.
type WebhookAlerter struct {
	webhookURL string
	rateLimit  time.Duration
	lastSend   time.Time
	mu         sync.Mutex
	client     *http.Client
}

func NewWebhookAlerter(cfg config.WebhookConfig) *WebhookAlerter {
	return &WebhookAlerter{
		webhookURL: cfg.URL,
		rateLimit:  time.Duration(cfg.RateLimitMs) * time.Millisecond,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (a *WebhookAlerter) Enabled() bool {
	return a != nil && a.webhookURL != ""
}

// Alert reports a failed notification. It is a no-op without a webhook URL.
func (a *WebhookAlerter) Alert(ctx context.Context, rec *model.NotificationRecord) error {
	if !a.Enabled() {
		return nil
	}

	reason := "unknown error"
	if rec.Error != nil {
		reason = *rec.Error
	}
	msg := &webhookMessage{
		Embeds: []webhookEmbed{{
			Title:       truncate(fmt.Sprintf("Failed %s notification", rec.Kind), 256),
			Description: truncate(reason, 4096),
			Color:       alertColor,
			Fields: []webhookField{
				{Name: "Recipient", Value: rec.Recipient, Inline: true},
				{Name: "Event", Value: orDash(rec.EventID), Inline: true},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	}

	a.wait()
	if err := a.send(ctx, msg); err != nil {
		return fmt.Errorf("webhook %s: %w", maskWebhook(a.webhookURL), err)
	}
	a.mu.Lock()
	a.lastSend = time.Now()
	a.mu.Unlock()
	return nil
}

func (a *WebhookAlerter) wait() {
	a.mu.Lock()
	elapsed := time.Since(a.lastSend)
	a.mu.Unlock()
	if elapsed < a.rateLimit {
		time.Sleep(a.rateLimit - elapsed)
	}
}

func (a *WebhookAlerter) send(ctx context.Context, message *webhookMessage) error {
	jsonBody, err := json.Marshal(message)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func maskWebhook(url string) string {
	if len(url) < 30 {
		return "***"
	}
	return url[:30] + "***"
}
