package scheduler

import (
	"context"
	"fmt"
	"time"

	"fm_servicios_backend/internal/notification"
	quotesrepo "fm_servicios_backend/internal/quotes/repository"
	schedrepo "fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 10

// VisitReader loads a visit by id.
type VisitReader interface {
	Get(ctx context.Context, visitID int64) (schedrepo.Visit, error)
}

// QuoteReader loads the quote a visit belongs to, for the customer phone.
type QuoteReader interface {
	Get(ctx context.Context, id int64) (quotesrepo.Quote, error)
}

// ReminderNotifier delivers the reminder and reports whether any channel
// went through.
type ReminderNotifier interface {
	VisitReminder(ctx context.Context, r notification.Reminder) bool
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	visits   VisitReader
	quotes   QuoteReader
	notifier ReminderNotifier
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, visits VisitReader, quotes QuoteReader, notifier ReminderNotifier, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: defaultConcurrency,
		Queues: map[string]int{
			defaultQueue: 1,
		},
	})

	w := newWorker(visits, quotes, notifier, log)
	w.server = server
	return w, nil
}

func newWorker(visits VisitReader, quotes QuoteReader, notifier ReminderNotifier, log *logger.Logger) *Worker {
	w := &Worker{
		mux:      asynq.NewServeMux(),
		visits:   visits,
		quotes:   quotes,
		notifier: notifier,
		log:      log,
	}
	w.mux.HandleFunc(TaskVisitReminder, w.handleVisitReminder)
	return w
}

// Run processes tasks until ctx is cancelled, then waits for in-flight
// tasks to finish.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}
	w.log.Info("scheduler worker started", "queue", defaultQueue)

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}

func (w *Worker) handleVisitReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseVisitReminderPayload(task)
	if err != nil {
		return err
	}

	visit, err := w.visits.Get(ctx, payload.VisitID)
	if apperr.Is(err, apperr.KindNotFound) {
		w.log.Info("reminder skipped, visit cancelled", "visitId", payload.VisitID)
		return nil
	}
	if err != nil {
		return err
	}
	if visit.Time == nil {
		return nil
	}
	if payload.StartsAt != "" && slotKey(visit.StartsAt()) != payload.StartsAt {
		w.log.Info("reminder skipped, visit moved", "visitId", visit.ID)
		return nil
	}

	phone, err := w.customerPhone(ctx, visit)
	if err != nil {
		return err
	}
	if visit.CustomerEmail == "" && phone == "" {
		w.log.Info("reminder skipped, no contact", "visitId", visit.ID)
		return nil
	}

	delivered := w.notifier.VisitReminder(ctx, notification.Reminder{
		VisitID:       visit.ID,
		QuoteID:       visit.QuoteID,
		CustomerName:  visit.CustomerName,
		CustomerEmail: visit.CustomerEmail,
		CustomerPhone: phone,
		Technician:    visit.TechnicianName,
		Address:       visit.Address,
		StartsAt:      visit.StartsAt(),
		Timed:         true,
	})
	if !delivered {
		return fmt.Errorf("visit %d reminder not delivered", visit.ID)
	}
	return nil
}

func (w *Worker) customerPhone(ctx context.Context, visit schedrepo.Visit) (string, error) {
	if visit.QuoteID == nil || w.quotes == nil {
		return "", nil
	}
	q, err := w.quotes.Get(ctx, *visit.QuoteID)
	if apperr.Is(err, apperr.KindNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return q.CustomerPhone, nil
}

func slotKey(wall time.Time) string {
	return wall.Format(time.RFC3339)
}
