package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Twilio error codes that will not succeed on retry.
var twilioPermanentCodes = map[int]string{
	21211: ErrorCodeInvalidRecipient, // invalid 'To' phone number
	21614: ErrorCodeInvalidRecipient, // not a mobile number
	21408: ErrorCodeBadRequest,       // region not enabled
	21610: ErrorCodeUnsubscribed,     // recipient replied STOP
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type SMSService struct {
	api        messageCreator
	fromNumber string
}

func NewSMSService(accountSID, authToken, fromNumber string) *SMSService {
	var api messageCreator
	if accountSID != "" && authToken != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
		api = client.Api
	}
	return &SMSService{api: api, fromNumber: fromNumber}
}

// Send delivers an accountability text message. Implements Transport.
func (s *SMSService) Send(ctx context.Context, to Recipient, content Content) SendResult {
	if to.Phone == "" {
		return SendResult{ErrorCode: ErrorCodeInvalidRecipient, Err: errors.New("recipient has no phone number")}
	}
	if s.api == nil {
		return SendResult{ErrorCode: ErrorCodeNotConfigured, Err: errors.New("sms service not configured (missing TWILIO_ACCOUNT_SID)")}
	}
	if err := ctx.Err(); err != nil {
		return SendResult{ErrorCode: ErrorCodeNetwork, Err: err}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to.Phone)
	params.SetFrom(s.fromNumber)
	params.SetBody(content.Text)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		code := classifyTwilioError(err)
		slog.Warn("sms send failed", "error", err, "code", code)
		return SendResult{ErrorCode: code, Err: err}
	}

	var sid string
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	slog.Info("sms sent", "sid", sid)
	return SendResult{Success: true, ProviderMessageID: sid}
}

func classifyTwilioError(err error) string {
	var restErr *twilioclient.TwilioRestError
	if !errors.As(err, &restErr) {
		return ErrorCodeNetwork
	}
	if code, ok := twilioPermanentCodes[restErr.Code]; ok {
		return code
	}
	switch {
	case restErr.Status == 429:
		return ErrorCodeRateLimited
	case restErr.Status >= 500:
		return ErrorCodeProvider
	case restErr.Status == 400 || restErr.Status == 422:
		return ErrorCodeBadRequest
	}
	return ErrorCodeProvider
}
