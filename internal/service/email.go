package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/rundownapp/rundown/internal/markdown"
)

const defaultSubject = "Accountability Check-In"

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
	renderer  *markdown.Renderer
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
		renderer:  markdown.NewRenderer(),
	}
}

// Send delivers an accountability message. Implements Transport.
func (s *EmailService) Send(ctx context.Context, to Recipient, content Content) SendResult {
	if to.Email == "" {
		return SendResult{ErrorCode: ErrorCodeInvalidRecipient, Err: errors.New("recipient has no email address")}
	}

	subject := content.Subject
	if subject == "" {
		subject = emailSubject(content.Text)
	}
	html, err := s.renderHTML(content.Text)
	if err != nil {
		return SendResult{ErrorCode: ErrorCodeBadRequest, Err: err}
	}

	id, err := s.send(ctx, "accountability", to.Email, subject, content.Text, html)
	if err != nil {
		return SendResult{ErrorCode: classifyEmailError(err), Err: err}
	}
	return SendResult{Success: true, ProviderMessageID: id}
}

func (s *EmailService) SendInviteEmail(ctx context.Context, email, contactName, ownerName, optOutURL string) error {
	msg, err := renderEmailTemplate(s.renderer, "invite.md", emailData{
		AppName:     s.appName,
		AppURL:      s.appURL,
		ContactName: contactName,
		OwnerName:   ownerName,
		OptOutURL:   optOutURL,
	})
	if err != nil {
		return err
	}
	_, err = s.send(ctx, "contact_invite", email, msg.Subject, msg.Text, msg.HTML)
	return err
}

func (s *EmailService) SendOptOutNotice(ctx context.Context, email, ownerName, contactName string) error {
	msg, err := renderEmailTemplate(s.renderer, "opt_out_notice.md", emailData{
		AppName:     s.appName,
		AppURL:      s.appURL,
		ContactName: contactName,
		OwnerName:   ownerName,
	})
	if err != nil {
		return err
	}
	_, err = s.send(ctx, "opt_out_notice", email, msg.Subject, msg.Text, msg.HTML)
	return err
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, text, html string) (string, error) {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject, "text", text)
		return "dev-email", nil
	}

	if s.client == nil {
		return "", errEmailNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    text,
		Html:    html,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", err
	}
	slog.Info("email sent", "type", kind, "to", to, "id", sent.Id)
	return sent.Id, nil
}

func (s *EmailService) renderHTML(text string) (string, error) {
	body, err := s.renderer.Message(text)
	if err != nil {
		return "", err
	}
	return wrapEmailLayout(s.appName, body)
}

var errEmailNotConfigured = errors.New("email service not configured (missing RESEND_API_KEY)")

var sentenceEnd = regexp.MustCompile(`[.!?]`)

// emailSubject uses the first sentence of the message when it is short enough.
func emailSubject(text string) string {
	first := strings.TrimSpace(sentenceEnd.Split(text, 2)[0])
	if first == "" || len(first) > 60 {
		return defaultSubject
	}
	return first
}

func classifyEmailError(err error) string {
	if errors.Is(err, errEmailNotConfigured) {
		return ErrorCodeNotConfigured
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit"):
		return ErrorCodeRateLimited
	case strings.Contains(msg, "invalid `to`") || strings.Contains(msg, "invalid email"):
		return ErrorCodeInvalidRecipient
	case strings.Contains(msg, "validation") || strings.Contains(msg, "422") || strings.Contains(msg, "400"):
		return ErrorCodeBadRequest
	}
	return ErrorCodeProvider
}
