package sms

import (
	"context"
	"errors"
	"testing"

	"fm_servicios_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type captureCreator struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (c *captureCreator) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	c.params = p
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, c.err
}

func TestTwilioSenderSetsParams(t *testing.T) {
	api := &captureCreator{}
	s := &TwilioSender{api: api, from: "+15005550006", log: logger.Discard()}

	require.NoError(t, s.SendSMS(context.Background(), " +56912345678 ", "Recordatorio"))
	require.NotNil(t, api.params)
	assert.Equal(t, "+56912345678", *api.params.To)
	assert.Equal(t, "+15005550006", *api.params.From)
	assert.Equal(t, "Recordatorio", *api.params.Body)
}

func TestTwilioSenderErrors(t *testing.T) {
	s := &TwilioSender{api: &captureCreator{err: errors.New("21211")}, from: "+1", log: logger.Discard()}
	assert.Error(t, s.SendSMS(context.Background(), "+56912345678", "x"))
	assert.Error(t, s.SendSMS(context.Background(), "  ", "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SendSMS(ctx, "+56912345678", "x"), context.Canceled)
}

type smsConfig struct{}

func (smsConfig) GetTwilioAccountSID() string { return "" }
func (smsConfig) GetTwilioAuthToken() string  { return "" }
func (smsConfig) GetTwilioFromNumber() string { return "" }
func (smsConfig) IsSMSEnabled() bool          { return false }

func TestNewDisabledIsNoop(t *testing.T) {
	assert.IsType(t, NoopSender{}, New(smsConfig{}, logger.Discard()))
}
