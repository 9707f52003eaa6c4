// Package sms sends text messages through Twilio.
package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/logger"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers a text message to an E.164 number.
type Sender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type NoopSender struct{}

func (NoopSender) SendSMS(context.Context, string, string) error { return nil }

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends SMS with the Twilio REST API.
type TwilioSender struct {
	api  messageCreator
	from string
	log  *logger.Logger
}

// New returns a TwilioSender, or a NoopSender when SMS is disabled.
func New(cfg config.SMSConfig, log *logger.Logger) Sender {
	if !cfg.IsSMSEnabled() {
		return NoopSender{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.GetTwilioAccountSID(),
		Password: cfg.GetTwilioAuthToken(),
	})
	return &TwilioSender{api: client.Api, from: cfg.GetTwilioFromNumber(), log: log}
}

// SendSMS sends body to the number. The Twilio client has no context
// support, so ctx is only checked before the call.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("sms recipient is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		s.log.Debug("sms sent", "sid", *resp.Sid)
	}
	return nil
}
