// Package notification builds the customer and staff messages of the quote
// lifecycle and delivers them by email and SMS. Every send reports success as
// a bool; delivery failures are logged and never propagate.
package notification

import (
	"context"
	"strings"

	"fm_servicios_backend/internal/email"
	paysvc "fm_servicios_backend/internal/payments/service"
	quotesvc "fm_servicios_backend/internal/quotes/service"
	"fm_servicios_backend/internal/sms"
	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/sanitize"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// Service sends notifications.
type Service struct {
	mail       email.Sender
	texts      sms.Sender
	staffInbox string
	log        *logger.Logger
}

// New creates a notification service.
func New(mail email.Sender, texts sms.Sender, cfg config.NotificationConfig, log *logger.Logger) *Service {
	if mail == nil {
		mail = email.NoopSender{}
	}
	if texts == nil {
		texts = sms.NoopSender{}
	}
	return &Service{mail: mail, texts: texts, staffInbox: strings.TrimSpace(cfg.GetStaffInbox()), log: log}
}

func (s *Service) RequestReceived(ctx context.Context, n quotesvc.RequestNotice) bool {
	return s.deliver(ctx, "request_received", requestReceivedMessage(n))
}

func (s *Service) RequestForStaff(ctx context.Context, n quotesvc.RequestNotice) bool {
	if s.staffInbox == "" {
		return false
	}
	return s.deliver(ctx, "request_for_staff", requestForStaffMessage(n, s.staffInbox))
}

func (s *Service) QuoteReady(ctx context.Context, n quotesvc.Notice) bool {
	return s.deliver(ctx, "quote_ready", quoteReadyMessage(n))
}

func (s *Service) QuoteAccepted(ctx context.Context, n quotesvc.Notice) bool {
	return s.deliver(ctx, "quote_accepted", quoteAcceptedMessage(n))
}

func (s *Service) QuoteRejected(ctx context.Context, n quotesvc.Notice) bool {
	return s.deliver(ctx, "quote_rejected", quoteRejectedMessage(n))
}

// PaymentAuthorized sends the pay link, with a QR code of it when one can be
// rendered.
func (s *Service) PaymentAuthorized(ctx context.Context, n quotesvc.PaymentNotice) bool {
	var qr []byte
	if n.PayURL != "" {
		png, err := qrcode.Encode(n.PayURL, qrcode.Medium, qrSize)
		if err != nil {
			s.log.Warn("pay link qr failed", "error", err, "quoteId", n.QuoteID)
		} else {
			qr = png
		}
	}
	return s.deliver(ctx, "payment_authorized", paymentAuthorizedMessage(n, qr))
}

// PaymentReceipt confirms a completed payment, attaching the invoice PDF
// when one was issued.
func (s *Service) PaymentReceipt(ctx context.Context, r paysvc.Receipt) bool {
	return s.deliver(ctx, "payment_receipt", paymentReceiptMessage(r))
}

// VisitReminder emails and texts the customer ahead of a visit. It reports
// whether at least one channel delivered.
func (s *Service) VisitReminder(ctx context.Context, r Reminder) bool {
	mailed := s.deliver(ctx, "visit_reminder", reminderMessage(r))
	texted := s.text(ctx, "visit_reminder", r.CustomerPhone, reminderSMS(r))
	return mailed || texted
}

func (s *Service) deliver(ctx context.Context, kind string, msg email.Message) bool {
	if len(msg.To) == 0 || strings.TrimSpace(msg.To[0]) == "" {
		s.log.Debug("notification skipped, no recipient", "kind", kind)
		return false
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Warn("notification email failed", "kind", kind, "to", sanitize.MaskEmail(msg.To[0]), "error", err)
		return false
	}
	s.log.Info("notification email sent", "kind", kind, "to", sanitize.MaskEmail(msg.To[0]))
	return true
}

func (s *Service) text(ctx context.Context, kind, to, body string) bool {
	if strings.TrimSpace(to) == "" {
		return false
	}
	if err := s.texts.SendSMS(ctx, to, body); err != nil {
		s.log.Warn("notification sms failed", "kind", kind, "error", err)
		return false
	}
	return true
}

var (
	_ quotesvc.Notifier = (*Service)(nil)
	_ paysvc.Receipts   = (*Service)(nil)
)
