package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"creditledger/internal/config"
)

const reminderHeading = "Payment reminder"

var ErrPushDisabled = errors.New("push notifications are disabled")

// OneSignal sends push notifications through the OneSignal REST API.
// Credentials are set per request; the http.Client carries no shared headers.
type OneSignal struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
}

func NewOneSignal(cfg config.PushConfig) *OneSignal {
	return &OneSignal{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		appID:      cfg.AppID,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

type notificationRequest struct {
	AppID            string            `json:"app_id"`
	IncludePlayerIDs []string          `json:"include_player_ids"`
	Contents         map[string]string `json:"contents"`
	Headings         map[string]string `json:"headings"`
	Priority         int               `json:"priority"`
	TTL              int               `json:"ttl"`
}

// Send delivers message to a single device.
func (o *OneSignal) Send(ctx context.Context, playerID, message string) error {
	if o.baseURL == "" || o.appID == "" {
		return fmt.Errorf("onesignal is not configured")
	}

	body, err := json.Marshal(notificationRequest{
		AppID:            o.appID,
		IncludePlayerIDs: []string{playerID},
		Contents:         map[string]string{"en": message, "es": message},
		Headings:         map[string]string{"en": reminderHeading, "es": reminderHeading},
		Priority:         10,
		TTL:              3600,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("onesignal returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// Disabled drops every notification.
type Disabled struct{}

func (Disabled) Send(context.Context, string, string) error {
	return ErrPushDisabled
}
