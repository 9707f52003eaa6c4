package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fm_servicios_backend/internal/email"
	"fm_servicios_backend/internal/notification"
	"fm_servicios_backend/internal/payments"
	quotesrepo "fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/internal/scheduler"
	"fm_servicios_backend/internal/scheduling"
	"fm_servicios_backend/internal/sms"
	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/db"
	platformevents "fm_servicios_backend/platform/events"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	tx := db.NewTxManager(pool)
	eventBus := platformevents.NewInMemoryBus(log)
	defer eventBus.Wait()

	sender, err := email.NewSender(cfg, log)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	notifier := notification.New(sender, sms.New(cfg, log), cfg, log)

	quotes := quotesrepo.New(pool)
	schedulingModule := scheduling.NewModule(pool, tx, eventBus, cfg.GetCollisionWindow(), validator.New(), log)

	// Worker-side payments wiring (no HTTP handlers required).
	paymentsModule, err := payments.NewModule(ctx, cfg, quotes, tx, eventBus, validator.New(), log)
	if err != nil {
		log.Error("failed to initialize payments module", "error", err)
		panic("failed to initialize payments module: " + err.Error())
	}

	sweep, err := scheduler.NewSweep(cfg.GetStaleSweepSpec(), cfg.GetPaymentTransactionTTL(), paymentsModule.Service(), log)
	if err != nil {
		log.Error("invalid stale payment sweep spec", "spec", cfg.GetStaleSweepSpec(), "error", err)
		panic("invalid stale payment sweep spec: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, schedulingModule.Service(), quotes, notifier, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweep.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
