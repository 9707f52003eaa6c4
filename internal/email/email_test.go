package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fm_servicios_backend/platform/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) Send(context.Context, Message) error {
	s.calls++
	return s.err
}

func TestFallbackStopsAtFirstSuccess(t *testing.T) {
	first := &stubSender{err: errors.New("sendgrid 401")}
	second := &stubSender{}
	third := &stubSender{}

	err := NewFallbackSender(logger.Discard(), first, second, third).Send(context.Background(), Message{To: []string{"a@b.cl"}})
	require.NoError(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Zero(t, third.calls)
}

func TestFallbackJoinsErrors(t *testing.T) {
	err := NewFallbackSender(logger.Discard(),
		&stubSender{err: errors.New("sendgrid 401")},
		&stubSender{err: errors.New("smtp refused")},
	).Send(context.Background(), Message{To: []string{"a@b.cl"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sendgrid 401")
	assert.Contains(t, err.Error(), "smtp refused")
}

type emailConfig struct {
	enabled  bool
	sendgrid string
	smtpHost string
}

func (c emailConfig) GetEmailEnabled() bool       { return c.enabled }
func (c emailConfig) GetSendGridAPIKey() string   { return c.sendgrid }
func (c emailConfig) GetSMTPHost() string         { return c.smtpHost }
func (c emailConfig) GetSMTPPort() int            { return 587 }
func (c emailConfig) GetSMTPUsername() string     { return "" }
func (c emailConfig) GetSMTPPassword() string     { return "" }
func (c emailConfig) GetEmailFromName() string    { return "FM Servicios Generales" }
func (c emailConfig) GetEmailFromAddress() string { return "no-reply@fm.cl" }

func TestNewSenderSelection(t *testing.T) {
	s, err := NewSender(emailConfig{}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, NoopSender{}, s)

	s, err = NewSender(emailConfig{enabled: true, sendgrid: "SG.x"}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &SendGridSender{}, s)

	s, err = NewSender(emailConfig{enabled: true, sendgrid: "SG.x", smtpHost: "smtp.fm.cl"}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &FallbackSender{}, s)

	_, err = NewSender(emailConfig{enabled: true}, logger.Discard())
	assert.Error(t, err)
}

type captureSendGrid struct {
	sent   *mail.SGMailV3
	status int
}

func (c *captureSendGrid) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	c.sent = m
	return &rest.Response{StatusCode: c.status, Body: "bad"}, nil
}

func TestSendGridBuildsMessage(t *testing.T) {
	client := &captureSendGrid{status: 202}
	s := &SendGridSender{client: client, fromName: "FM Servicios Generales", fromEmail: "no-reply@fm.cl"}

	err := s.Send(context.Background(), Message{
		Subject:     "Pago realizado con exito - Cotizacion #7",
		To:          []string{"maria@example.cl", "staff@fm.cl"},
		Text:        "Hola Maria,\n\nGracias.",
		Attachments: []Attachment{{Content: []byte("%PDF"), FileName: "factura_cotizacion_7.pdf", MIMEType: "application/pdf"}},
	})
	require.NoError(t, err)

	require.NotNil(t, client.sent)
	require.Len(t, client.sent.Personalizations, 1)
	assert.Len(t, client.sent.Personalizations[0].To, 2)
	require.Len(t, client.sent.Attachments, 1)
	assert.Equal(t, "factura_cotizacion_7.pdf", client.sent.Attachments[0].Filename)
	assert.Equal(t, "JVBERg==", client.sent.Attachments[0].Content)
	require.Len(t, client.sent.Content, 2)
	assert.Contains(t, client.sent.Content[1].Value, "Hola Maria,")
}

func TestSendGridSurfacesHTTPErrors(t *testing.T) {
	s := &SendGridSender{client: &captureSendGrid{status: 401}}
	err := s.Send(context.Background(), Message{Subject: "x", To: []string{"a@b.cl"}, Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSendRequiresRecipients(t *testing.T) {
	s := &SendGridSender{client: &captureSendGrid{status: 202}}
	assert.ErrorIs(t, s.Send(context.Background(), Message{Subject: "x"}), errNoRecipients)
}

func TestRenderTextEscapesAndBreaksLines(t *testing.T) {
	out, err := renderText("Asunto", "Hola <b>Ana</b>,\n\nLinea uno\nLinea dos")
	require.NoError(t, err)

	assert.Contains(t, out, "Hola &lt;b&gt;Ana&lt;/b&gt;,")
	assert.Contains(t, out, "Linea uno<br>Linea dos")
	assert.Equal(t, 2, strings.Count(out, "padding-bottom:12px"))
}

func TestSMTPBuildsMultipartWithAttachment(t *testing.T) {
	s := NewSMTPSender("smtp.fm.cl", 587, "", "", "no-reply@fm.cl", "FM Servicios Generales")
	m, err := s.buildMsg(Message{
		Subject:     "Pago autorizado - Cotizacion #3",
		To:          []string{"maria@example.cl"},
		Text:        "Hola",
		Attachments: []Attachment{{Content: []byte("png"), FileName: "pago_qr.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"<maria@example.cl>"}, m.GetToString())
	assert.Len(t, m.GetAttachments(), 1)
}
