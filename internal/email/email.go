// Package email delivers transactional mail through SendGrid with an SMTP
// fallback.
package email

import (
	"context"
	"errors"
	"fmt"

	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/logger"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string // e.g. "factura_cotizacion_42.pdf"
	MIMEType string // e.g. "application/pdf"
}

// Message is one outbound email. HTML is rendered from Text when empty.
type Message struct {
	Subject     string
	To          []string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var errNoRecipients = errors.New("email has no recipients")

type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }

// FallbackSender tries each sender in order and stops at the first success.
type FallbackSender struct {
	senders []Sender
	log     *logger.Logger
}

func NewFallbackSender(log *logger.Logger, senders ...Sender) *FallbackSender {
	return &FallbackSender{senders: senders, log: log}
}

func (f *FallbackSender) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range f.senders {
		err := s.Send(ctx, msg)
		if err == nil {
			return nil
		}
		f.log.Warn("email sender failed, trying next", "sender", fmt.Sprintf("%T", s), "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no email sender configured")
	}
	return errors.Join(errs...)
}

// NewSender builds the configured sender chain: SendGrid first, SMTP second.
// Disabled email yields a NoopSender.
func NewSender(cfg config.EmailConfig, log *logger.Logger) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		log.Info("email disabled; messages will be dropped")
		return NoopSender{}, nil
	}

	var chain []Sender
	if key := cfg.GetSendGridAPIKey(); key != "" {
		chain = append(chain, NewSendGridSender(key, cfg.GetEmailFromAddress(), cfg.GetEmailFromName()))
	}
	if host := cfg.GetSMTPHost(); host != "" {
		chain = append(chain, NewSMTPSender(host, cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName()))
	}
	switch len(chain) {
	case 0:
		return nil, errors.New("email enabled but neither SENDGRID_API_KEY nor SMTP_HOST is set")
	case 1:
		return chain[0], nil
	}
	return NewFallbackSender(log, chain...), nil
}

func htmlBody(msg Message) (string, error) {
	if msg.HTML != "" {
		return msg.HTML, nil
	}
	return renderText(msg.Subject, msg.Text)
}
