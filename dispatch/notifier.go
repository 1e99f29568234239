// Package dispatch notifies human dispatchers about emergency calls.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

// Alert carries the emergency details handed to a dispatcher.
type Alert struct {
	CallID            string `json:"call_id"`
	DriverName        string `json:"driver_name"`
	PhoneNumber       string `json:"phone_number"`
	LoadNumber        string `json:"load_number,omitempty"`
	EmergencyType     string `json:"emergency_type"`
	EmergencyLocation string `json:"emergency_location"`
	Injuries          string `json:"injuries"`
}

// Notifier is the human-dispatcher escalation channel. A nil return means the
// alert was acknowledged; callers bound the wait with a context deadline and
// proceed on timeout, favoring safety over waiting.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Webhook posts alerts to the dispatch application's escalation endpoint.
// One retry with backoff; a second failure is returned to the caller.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, a Alert) error {
	err := w.post(ctx, a)
	if err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
	}
	return w.post(ctx, a)
}

func (w *Webhook) post(ctx context.Context, a Alert) error {
	body, err := sonic.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("escalation endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Nop acknowledges every alert after logging it. Used in development when no
// dispatch webhook is configured.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(_ context.Context, a Alert) error {
	log.Warn().
		Str("callId", a.CallID).
		Str("emergencyType", a.EmergencyType).
		Str("emergencyLocation", a.EmergencyLocation).
		Msg("escalation alert (no dispatch webhook configured)")
	return nil
}
