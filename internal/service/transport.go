package service

import (
	"context"
	"log/slog"
)

// Transport error codes. Retryable reports which of them are worth another attempt.
const (
	ErrorCodeInvalidRecipient = "invalid_recipient"
	ErrorCodeUnsubscribed     = "unsubscribed"
	ErrorCodeBadRequest       = "bad_request"
	ErrorCodeRateLimited      = "rate_limited"
	ErrorCodeNetwork          = "network"
	ErrorCodeProvider         = "provider_error"
	ErrorCodeNotConfigured    = "not_configured"
)

type Recipient struct {
	Name      string
	Email     string
	Phone     string
	PushToken string
}

type Content struct {
	Subject string
	Text    string
}

type SendResult struct {
	Success           bool
	ProviderMessageID string
	ErrorCode         string
	Err               error
}

func (r SendResult) Retryable() bool {
	if r.Success {
		return false
	}
	switch r.ErrorCode {
	case ErrorCodeInvalidRecipient, ErrorCodeUnsubscribed, ErrorCodeBadRequest:
		return false
	}
	return true
}

func (r SendResult) Error() string {
	if r.Err != nil {
		return r.ErrorCode + ": " + r.Err.Error()
	}
	return r.ErrorCode
}

// Transport sends one message to one recipient.
type Transport interface {
	Send(ctx context.Context, to Recipient, content Content) SendResult
}

// Transports selects a transport by contact channel.
type Transports map[string]Transport

// LogTransport only logs. Used for channels that are not configured in development.
type LogTransport struct {
	Channel string
}

func (t LogTransport) Send(_ context.Context, to Recipient, content Content) SendResult {
	slog.Info("message sent (dev mode)",
		"channel", t.Channel,
		"to_email", to.Email,
		"to_phone", to.Phone,
		"subject", content.Subject,
		"text", content.Text,
	)
	return SendResult{Success: true, ProviderMessageID: "dev-" + t.Channel}
}
