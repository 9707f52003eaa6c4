package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fm_servicios_backend/internal/adapters"
	"fm_servicios_backend/internal/adapters/storage"
	"fm_servicios_backend/internal/customers"
	"fm_servicios_backend/internal/email"
	apphttp "fm_servicios_backend/internal/http"
	"fm_servicios_backend/internal/http/router"
	"fm_servicios_backend/internal/invoicing"
	"fm_servicios_backend/internal/locations"
	"fm_servicios_backend/internal/notification"
	"fm_servicios_backend/internal/payments"
	"fm_servicios_backend/internal/quotes"
	quotesvc "fm_servicios_backend/internal/quotes/service"
	"fm_servicios_backend/internal/scheduler"
	"fm_servicios_backend/internal/scheduling"
	"fm_servicios_backend/internal/sms"
	"fm_servicios_backend/internal/technicians"
	"fm_servicios_backend/migrations"
	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/db"
	platformevents "fm_servicios_backend/platform/events"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	tx := db.NewTxManager(pool)

	// Event bus for decoupled communication between modules
	eventBus := platformevents.NewInMemoryBus(log)
	defer eventBus.Wait()

	rdb := newRedisClient(cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender, err := email.NewSender(cfg, log)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	storeSvc := initStorage(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	catalog, err := locations.NewCatalog(cfg, sqlDB, rdb, log)
	if err != nil {
		log.Error("failed to load location catalog", "error", err)
		panic("failed to load location catalog: " + err.Error())
	}
	locationsModule := locations.NewModule(catalog)

	customersModule := customers.NewModule(pool, log)
	techniciansModule := technicians.NewModule(pool, val, log)
	schedulingModule := scheduling.NewModule(pool, tx, eventBus, cfg.GetCollisionWindow(), val, log)

	quotesModule := quotes.NewModule(pool, tx, quotes.Deps{
		Customers:   customersModule.Service(),
		Technicians: techniciansModule.Service(),
		Visits:      schedulingModule.Service(),
		Catalog:     catalog,
	}, quotesvc.Policy{
		FixedPrice:       cfg.GetFixedPrice(),
		UncoveredComunas: cfg.GetUncoveredComunas(),
	}, val, log)

	// Agenda writes go through the quote lifecycle
	schedulingModule.SetDesk(quotesModule.Service())

	paymentsModule, err := payments.NewModule(ctx, cfg, quotesModule.Repository(), tx, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize payments module", "error", err)
		panic("failed to initialize payments module: " + err.Error())
	}
	quotesModule.Service().SetPayments(adapters.NewQuotePayments(paymentsModule.Service()))

	invoicingModule := invoicing.NewModule(invoicing.NewService(
		invoicing.NewRepository(pool),
		storeSvc,
		cfg.GetMinioBucketInvoices(),
		storage.NewLocalStore(cfg.GetInvoiceLocalDir()),
		invoicing.Company{
			Name:      cfg.GetCompanyName(),
			RUT:       cfg.GetCompanyRUT(),
			Email:     cfg.GetStaffInbox(),
			PortalURL: cfg.GetAppBaseURL(),
		},
		cfg.GetFixedPrice(),
		log,
	))
	paymentsModule.Service().SetInvoicer(invoicingModule.Service())

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.NewModule(notification.New(sender, sms.New(cfg, log), cfg, log), log)
	notificationModule.RegisterHandlers(eventBus)
	quotesModule.Service().SetNotifier(notificationModule.Service())
	paymentsModule.Service().SetReceipts(notificationModule.Service())

	if reminderScheduler != nil {
		scheduler.NewReminders(reminderScheduler, cfg.GetReminderLeadTime(), log).RegisterHandlers(eventBus)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			locationsModule,
			techniciansModule,
			schedulingModule,
			quotesModule,
			paymentsModule,
			invoicingModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initStorage connects to MinIO when configured. Without it invoices are
// only written to the local directory.
func initStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) storage.StorageService {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; invoices stored on local disk only", "dir", cfg.GetInvoiceLocalDir())
		return nil
	}
	svc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure invoices bucket", 5, 2*time.Second, func() error {
		return svc.EnsureBucketExists(ctx, cfg.GetMinioBucketInvoices())
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketInvoices())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "invoicesBucket", cfg.GetMinioBucketInvoices())
	return svc
}

func newRedisClient(cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; location cache disabled")
		return nil
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; location cache disabled", "error", err)
		return nil
	}
	return redis.NewClient(opt)
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; visit reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
