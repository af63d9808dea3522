// Package bootstrap wires configuration, infrastructure and application
// services into one App shared by the server and the CLI.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	appevent "github.com/erp/fulfillment/internal/application/event"
	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	apptimetracking "github.com/erp/fulfillment/internal/application/timetracking"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/migration"
	"github.com/erp/fulfillment/internal/infrastructure/notification"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/scheduler"
	"github.com/erp/fulfillment/internal/infrastructure/storage"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// App holds every long-lived component of one process
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB          *persistence.Database
	Tracer      *telemetry.TracerProvider
	Meter       *telemetry.MeterProvider
	Logs        *telemetry.LoggerProvider
	Profiler    *telemetry.Profiler
	Idempotency shared.IdempotencyStore
	Files       storage.FileStore

	Bus         *event.InMemoryEventBus
	Outbox      *event.OutboxProcessor
	OutboxAdmin *appevent.OutboxService

	Fulfillment    *appfulfillment.Service
	Batch          *appfulfillment.BatchRunner
	Reversal       *appinventory.ReversalService
	Reconciliation *appinventory.ReconciliationService
	TimeImport     *apptimetracking.ImportService
	Scheduler      *scheduler.BatchScheduler
	Verifier       *auth.WebhookVerifier

	closers []func(context.Context) error
}

// New builds the App. On error everything already opened is closed again.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (app *App, err error) {
	app = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close(context.WithoutCancel(ctx))
			app = nil
		}
	}()

	if err = app.initTelemetry(ctx); err != nil {
		return nil, err
	}
	if err = app.initDatabase(ctx); err != nil {
		return nil, err
	}

	app.Idempotency = cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	app.closers = append(app.closers, func(context.Context) error { return app.Idempotency.Close() })

	if app.Files, err = storage.New(&cfg.Storage, log); err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}

	if err = app.initServices(); err != nil {
		return nil, err
	}
	return app, nil
}

// initTelemetry runs first so every component below gets the bridged logger
func (a *App) initTelemetry(ctx context.Context) error {
	var err error
	if a.Logs, err = telemetry.NewLoggerProvider(ctx, a.Config.Telemetry, a.Logger); err != nil {
		return fmt.Errorf("logger provider: %w", err)
	}
	a.closers = append(a.closers, a.Logs.Shutdown)
	a.Logger = a.Logs.Bridge(a.Logger, a.Config.Telemetry.ServiceName)

	if a.Tracer, err = telemetry.NewTracerProvider(ctx, a.Config.Telemetry, a.Logger); err != nil {
		return fmt.Errorf("tracer provider: %w", err)
	}
	a.closers = append(a.closers, a.Tracer.Shutdown)

	if a.Meter, err = telemetry.NewMeterProvider(ctx, a.Config.Telemetry, a.Logger); err != nil {
		return fmt.Errorf("meter provider: %w", err)
	}
	a.closers = append(a.closers, a.Meter.Shutdown)

	if a.Profiler, err = telemetry.NewProfiler(a.Config.Telemetry, a.Logger); err != nil {
		return fmt.Errorf("profiler: %w", err)
	}
	a.closers = append(a.closers, a.Profiler.Stop)
	if a.Profiler.IsEnabled() {
		a.Tracer.EnableSpanProfiles()
	}
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	cfg := a.Config
	gormLog := logger.NewGormLogger(a.Logger, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return err
	}
	a.DB = db
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database.Driver), a.Logger)
	if err := plugin.RegisterOtelGorm(db.DB); err != nil {
		return fmt.Errorf("database tracing: %w", err)
	}

	return a.migrate(ctx)
}

// migrate brings the schema up to date: embedded SQL migrations on
// postgres, AutoMigrate on sqlite
func (a *App) migrate(ctx context.Context) error {
	if a.Config.Database.Driver == "sqlite" {
		if err := a.DB.AutoMigrate(); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	return MigrateUp(ctx, &a.Config.Database, a.Logger)
}

// MigrateUp applies the embedded migrations over a dedicated connection.
// The migrate driver owns and closes that connection.
func MigrateUp(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("ping migration connection: %w", err)
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

func (a *App) initServices() error {
	cfg := a.Config
	log := a.Logger
	gdb := a.DB.DB

	settings := Settings(cfg.Fulfillment)
	if err := settings.Validate(); err != nil {
		return err
	}

	metrics, err := telemetry.NewFulfillmentMetrics(a.Meter.Meter(telemetry.MeterName))
	if err != nil {
		return fmt.Errorf("fulfillment metrics: %w", err)
	}

	serializer := event.NewDefaultSerializer()
	outbox := event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries)
	scope := persistence.NewGormTransactionScope(gdb, outbox)
	orders := persistence.NewGormSalesOrderRepository(gdb)

	a.Fulfillment = appfulfillment.NewService(orders, persistence.NewGormDocumentTransformer(gdb),
		scope.Fulfillment(), settings, log).WithMetrics(metrics)

	if a.Reversal, err = appinventory.NewReversalService(scope.Inventory(), cfg.Fulfillment.InventoryAccountID, log); err != nil {
		return err
	}
	if a.Reconciliation, err = appinventory.NewReconciliationService(scope.Inventory(), cfg.Fulfillment.InventoryAccountID, log); err != nil {
		return err
	}
	reverser := telemetry.NewTracedReverser(a.Reversal, metrics)

	a.Batch = appfulfillment.NewBatchRunner(orders, a.Fulfillment, log)
	if settings.ReverseInline {
		a.Batch = a.Batch.WithReverser(reverser)
	}

	a.Bus = event.NewInMemoryEventBus(log)
	completed := appfulfillment.NewFulfillmentCompletedHandler(reverser, log)
	a.Bus.Subscribe(event.NewIdempotentHandler(completed, a.Idempotency, shared.IdempotencyConfig{
		TTL:     cfg.Event.IdempotencyTTL,
		Enabled: true,
	}, log))
	outboxRepo := event.NewGormOutboxRepository(gdb)
	a.OutboxAdmin = appevent.NewOutboxService(outboxRepo, log)
	a.Outbox = event.NewOutboxProcessor(outboxRepo, a.Bus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
		CleanupInterval:  event.DefaultOutboxProcessorConfig().CleanupInterval,
	}, log)

	var mailer apptimetracking.Mailer
	if cfg.Mail.Enabled {
		m, err := notification.NewSMTPMailer(&cfg.Mail, notification.WithLogger(log))
		if err != nil {
			return fmt.Errorf("mailer: %w", err)
		}
		mailer = m
	}
	a.TimeImport = apptimetracking.NewImportService(persistence.NewGormTimeEntryRepository(gdb), a.Files, mailer,
		apptimetracking.ImportOptions{
			DateLayout:    cfg.TimeImport.DateLayout,
			SummaryPrefix: cfg.TimeImport.SummaryPrefix,
			MaxRows:       cfg.TimeImport.MaxRows,
			Recipients:    cfg.Mail.Recipients,
		}, log)

	if a.Scheduler, err = scheduler.NewBatchScheduler(cfg.Scheduler, a.Batch, log); err != nil {
		return err
	}

	if cfg.JWT.Secret != "" {
		if a.Verifier, err = auth.NewWebhookVerifier(cfg.JWT, auth.NewReplayGuard(a.Idempotency)); err != nil {
			return err
		}
	}
	return nil
}

// Settings maps the fulfillment configuration onto service settings
func Settings(cfg config.FulfillmentConfig) appfulfillment.Settings {
	return appfulfillment.Settings{
		InventoryAccountID: cfg.InventoryAccountID,
		PendingOrderLimit:  cfg.PendingOrderLimit,
		MapConcurrency:     cfg.MapConcurrency,
		UsageLimit:         cfg.UsageLimit,
		UsagePerGroup:      cfg.UsagePerGroup,
		MinRemainingUsage:  cfg.MinRemainingUsage,
		ShipmentMemoPrefix: cfg.ShipmentMemoPrefix,
		ReverseInline:      cfg.ReverseInline,
	}
}

// Close releases everything in reverse order of creation
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
