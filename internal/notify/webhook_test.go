package notify

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quakewatch/internal/types"
)

type frozenClock struct{ t time.Time }

func (c frozenClock) Now() time.Time { return c.t }

func sampleAlert() *types.Alert {
	return &types.Alert{
		ID:       "a1b2c3",
		ZoneName: "Japan",
		Event: types.SeismicEvent{
			ID:        "us7000abcd",
			Magnitude: 6.1,
			Place:     "120 km SSE of Hachijo-jima, Japan",
			Time:      time.Date(2026, 3, 15, 11, 20, 0, 0, time.UTC),
			Latitude:  33.11,
			Longitude: 139.78,
			DepthKm:   35.2,
			Tsunami:   true,
		},
		Severity:  types.SeverityStrong,
		AlertTime: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

type capturedRequest struct {
	body      []byte
	timestamp string
	signature string
	userAgent string
}

func captureServer(t *testing.T, status int, got *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.body = body
		got.timestamp = r.Header.Get("X-QuakeWatch-Timestamp")
		got.signature = r.Header.Get("X-QuakeWatch-Signature")
		got.userAgent = r.Header.Get("User-Agent")
		w.WriteHeader(status)
	}))
}

func TestWebhookSink_DeliversAlertJSON(t *testing.T) {
	var got capturedRequest
	server := captureServer(t, http.StatusOK, &got)
	defer server.Close()

	sink := NewWebhookSink(WebhookSinkConfig{URL: server.URL, UserAgent: "QuakeWatch-Test/1.0"})

	if err := sink.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	var delivered types.Alert
	if err := json.Unmarshal(got.body, &delivered); err != nil {
		t.Fatalf("payload is not an alert document: %v", err)
	}
	if delivered.ZoneName != "Japan" || delivered.Event.ID != "us7000abcd" {
		t.Errorf("delivered alert = %+v", delivered)
	}
	if got.userAgent != "QuakeWatch-Test/1.0" {
		t.Errorf("User-Agent = %q", got.userAgent)
	}
	if got.signature != "" {
		t.Error("no secret configured, payload must not be signed")
	}
}

func TestWebhookSink_SlackPayloadShape(t *testing.T) {
	var got capturedRequest
	server := captureServer(t, http.StatusOK, &got)
	defer server.Close()

	sink := NewWebhookSink(WebhookSinkConfig{URL: server.URL})
	alert := sampleAlert()

	payload, err := sink.format(alert)
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	var doc types.Alert
	if err := json.Unmarshal(payload, &doc); err != nil || doc.Event.ID != "us7000abcd" {
		t.Fatalf("non-Slack destination should get the alert verbatim: %s", payload)
	}

	sink.cfg.URL = "https://hooks.slack.com/services/T000/B000/XXXX"
	payload, err = sink.format(alert)
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	var slackDoc map[string]string
	if err := json.Unmarshal(payload, &slackDoc); err != nil {
		t.Fatalf("slack payload is not a text document: %s", payload)
	}
	text, ok := slackDoc["text"]
	if !ok {
		t.Fatalf("slack payload missing text field: %s", payload)
	}
	for _, want := range []string{"STRONG", "M6.1", "Japan", "Tsunami: true"} {
		if !strings.Contains(text, want) {
			t.Errorf("slack text missing %q: %s", want, text)
		}
	}
}

func TestWebhookSink_SignsWhenSecretConfigured(t *testing.T) {
	var got capturedRequest
	server := captureServer(t, http.StatusOK, &got)
	defer server.Close()

	sink := NewWebhookSink(WebhookSinkConfig{URL: server.URL, Secret: "topsecret"})
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sink.SetClock(frozenClock{t: now})

	if err := sink.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if got.timestamp != "1773576000" {
		t.Errorf("timestamp header = %q, want unix seconds of the frozen clock", got.timestamp)
	}
	want := Sign("topsecret", got.timestamp, got.body)
	if !hmac.Equal([]byte(got.signature), []byte(want)) {
		t.Errorf("signature = %q, want %q", got.signature, want)
	}
}

func TestWebhookSink_NonSuccessStatus(t *testing.T) {
	var got capturedRequest
	server := captureServer(t, http.StatusBadGateway, &got)
	defer server.Close()

	sink := NewWebhookSink(WebhookSinkConfig{URL: server.URL})

	err := sink.Notify(context.Background(), sampleAlert())
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeSinkDelivery {
		t.Fatalf("expected %s, got: %v", types.ErrCodeSinkDelivery, err)
	}
	if !strings.Contains(appErr.Message, "502") {
		t.Errorf("error message should carry the status: %q", appErr.Message)
	}
}

func TestWebhookSink_ConnectionRefused(t *testing.T) {
	sink := NewWebhookSink(WebhookSinkConfig{URL: "http://127.0.0.1:1", Timeout: time.Second})

	err := sink.Notify(context.Background(), sampleAlert())
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeSinkDelivery {
		t.Fatalf("expected %s, got: %v", types.ErrCodeSinkDelivery, err)
	}
}

func TestSign_Deterministic(t *testing.T) {
	a := Sign("secret", "1773576000", []byte(`{"x":1}`))
	b := Sign("secret", "1773576000", []byte(`{"x":1}`))
	if a != b {
		t.Fatal("signature is not deterministic")
	}
	if Sign("other", "1773576000", []byte(`{"x":1}`)) == a {
		t.Error("different secrets must produce different signatures")
	}
	if Sign("secret", "1773576001", []byte(`{"x":1}`)) == a {
		t.Error("different timestamps must produce different signatures")
	}
}
