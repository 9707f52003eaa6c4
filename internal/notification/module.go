package notification

import (
	"context"

	"fm_servicios_backend/internal/events"
	"fm_servicios_backend/platform/logger"
)

// Module subscribes the notification service to domain events.
type Module struct {
	svc *Service
	log *logger.Logger
}

// NewModule wraps svc for event subscription.
func NewModule(svc *Service, log *logger.Logger) *Module {
	return &Module{svc: svc, log: log}
}

// Service returns the notification service for direct callers.
func (m *Module) Service() *Service {
	return m.svc
}

// RegisterHandlers subscribes to the events that produce messages.
func (m *Module) RegisterHandlers(bus events.Bus) {
	// Scheduling domain events
	bus.Subscribe(events.VisitScheduled{}.EventName(), m)
	bus.Subscribe(events.VisitRescheduled{}.EventName(), m)

	// Payment domain events
	bus.Subscribe(events.PaymentCompleted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.VisitScheduled:
		m.svc.deliver(ctx, "visit_scheduled", visitScheduledMessage(e))
	case events.VisitRescheduled:
		m.svc.deliver(ctx, "visit_rescheduled", visitRescheduledMessage(e))
	case events.PaymentCompleted:
		m.handlePaymentCompleted(ctx, e)
	default:
		m.log.Debug("notification: unhandled event", "event", event.EventName())
	}
	return nil
}

func (m *Module) handlePaymentCompleted(ctx context.Context, e events.PaymentCompleted) {
	m.svc.text(ctx, "payment_completed", e.CustomerPhone, paymentSMS(e))
	if m.svc.staffInbox != "" {
		m.svc.deliver(ctx, "payment_completed_staff", paymentStaffMessage(e, m.svc.staffInbox))
	}
}
