package scheduler

import (
	"context"
	"time"

	"fm_servicios_backend/internal/events"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/logger"
)

// Reminders plans a reminder task for every timed visit that gets booked
// or moved.
type Reminders struct {
	scheduler ReminderScheduler
	lead      time.Duration
	now       func() time.Time
	log       *logger.Logger
}

func NewReminders(s ReminderScheduler, lead time.Duration, log *logger.Logger) *Reminders {
	return &Reminders{scheduler: s, lead: lead, now: time.Now, log: log}
}

func (r *Reminders) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.VisitScheduled{}.EventName(), r)
	bus.Subscribe(events.VisitRescheduled{}.EventName(), r)
}

func (r *Reminders) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.VisitScheduled:
		return r.plan(ctx, e.VisitID, e.StartsAt, e.Timed)
	case events.VisitRescheduled:
		return r.plan(ctx, e.VisitID, e.StartsAt, e.Timed)
	}
	return nil
}

// plan enqueues the reminder lead before the visit. A visit closer than the
// lead is reminded right away; one already started is left alone.
func (r *Reminders) plan(ctx context.Context, visitID int64, startsAt time.Time, timed bool) error {
	if !timed || r.scheduler == nil {
		return nil
	}
	at := clock.Instant(startsAt)
	now := r.now()
	if !at.After(now) {
		return nil
	}
	runAt := at.Add(-r.lead)
	if runAt.Before(now) {
		runAt = now
	}

	payload := VisitReminderPayload{VisitID: visitID, StartsAt: slotKey(startsAt)}
	if err := r.scheduler.ScheduleVisitReminder(ctx, payload, runAt); err != nil {
		r.log.Error("failed to schedule visit reminder", "visitId", visitID, "error", err)
		return err
	}
	r.log.Debug("visit reminder scheduled", "visitId", visitID, "runAt", runAt)
	return nil
}
