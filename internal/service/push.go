package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const DefaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

// PushService sends Expo push notifications to account owners.
type PushService struct {
	url    string
	client *http.Client
}

func NewPushService(url string) *PushService {
	if url == "" {
		url = DefaultExpoPushURL
	}
	return &PushService{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

type expoMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title,omitempty"`
	Body  string         `json:"body"`
	Sound string         `json:"sound,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type expoResponse struct {
	Data struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
}

// Send implements Transport for the push channel.
func (s *PushService) Send(ctx context.Context, to Recipient, content Content) SendResult {
	if to.PushToken == "" {
		return SendResult{ErrorCode: ErrorCodeInvalidRecipient, Err: errors.New("recipient has no push token")}
	}

	payload, err := json.Marshal(expoMessage{
		To:    to.PushToken,
		Title: content.Subject,
		Body:  content.Text,
		Sound: "default",
	})
	if err != nil {
		return SendResult{ErrorCode: ErrorCodeBadRequest, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return SendResult{ErrorCode: ErrorCodeBadRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return SendResult{ErrorCode: ErrorCodeNetwork, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return SendResult{ErrorCode: ErrorCodeRateLimited, Err: fmt.Errorf("expo push: status %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return SendResult{ErrorCode: ErrorCodeProvider, Err: fmt.Errorf("expo push: status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return SendResult{ErrorCode: ErrorCodeBadRequest, Err: fmt.Errorf("expo push: status %d", resp.StatusCode)}
	}

	var out expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SendResult{ErrorCode: ErrorCodeProvider, Err: fmt.Errorf("expo push: decode response: %w", err)}
	}
	if out.Data.Status == "error" {
		code := ErrorCodeProvider
		if out.Data.Details.Error == "DeviceNotRegistered" {
			code = ErrorCodeInvalidRecipient
		}
		return SendResult{ErrorCode: code, Err: fmt.Errorf("expo push: %s", out.Data.Message)}
	}

	slog.Info("push sent", "id", out.Data.ID)
	return SendResult{Success: true, ProviderMessageID: out.Data.ID}
}
