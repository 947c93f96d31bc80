package notify

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
	"strconv"
	"strings"
	"time"

	"quakewatch/internal/types"
)

// maxWebhookResponseRead limits how much of a response body we read for
// error messages.
const maxWebhookResponseRead = 4096

// WebhookSinkConfig holds the settings for outbound webhook delivery.
type WebhookSinkConfig struct {
	URL       string
	Secret    string // empty disables signing
	UserAgent string
	Timeout   time.Duration
}

// WebhookSink delivers alerts via HTTP POST. The payload shape is detected
// from the destination URL: Slack-compatible endpoints get a text payload,
// everything else receives the alert JSON verbatim. Payloads are signed with
// HMAC-SHA256 when a secret is configured.
type WebhookSink struct {
	cfg    WebhookSinkConfig
	client *http.Client
	clock  types.Clock
}

// NewWebhookSink creates a WebhookSink with its own timeout-bounded client.
func NewWebhookSink(cfg WebhookSinkConfig) *WebhookSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		clock:  types.RealClock{},
	}
}

// SetClock overrides the clock for testing.
func (w *WebhookSink) SetClock(c types.Clock) { w.clock = c }

// SetHTTPClient overrides the HTTP client for testing.
func (w *WebhookSink) SetHTTPClient(c *http.Client) { w.client = c }

// Name implements Sink.
func (w *WebhookSink) Name() string { return "webhook" }

// Notify implements Sink.
func (w *WebhookSink) Notify(ctx context.Context, alert *types.Alert) error {
	payload, err := w.format(alert)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}
	if w.cfg.Secret != "" {
		ts := strconv.FormatInt(w.clock.Now().Unix(), 10)
		req.Header.Set("X-QuakeWatch-Timestamp", ts)
		req.Header.Set("X-QuakeWatch-Signature", Sign(w.cfg.Secret, ts, payload))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeSinkDelivery, "webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponseRead))
		return types.NewAppError(
			types.ErrCodeSinkDelivery,
			fmt.Sprintf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			nil,
		)
	}
	return nil
}

// format builds the payload for the destination platform.
func (w *WebhookSink) format(alert *types.Alert) ([]byte, error) {
	if isSlackURL(w.cfg.URL) {
		text := fmt.Sprintf(":rotating_light: *Earthquake Alert* [%s]\nM%.1f %s\nZone: %s | Depth: %.1f km | Tsunami: %t",
			strings.ToUpper(alert.Severity.String()),
			alert.Event.Magnitude, alert.Event.Place,
			alert.ZoneName, alert.Event.DepthKm, alert.Event.Tsunami)
		return json.Marshal(map[string]string{"text": text})
	}
	return json.Marshal(alert)
}

// isSlackURL reports whether the destination is a Slack incoming webhook.
func isSlackURL(url string) bool {
	return strings.Contains(strings.ToLower(url), "hooks.slack.com")
}

// Sign computes the hex HMAC-SHA256 of "<timestamp>.<payload>" under the
// given secret. Receivers recompute this to authenticate deliveries.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
