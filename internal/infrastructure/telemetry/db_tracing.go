package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the otelgorm plugin
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound values; development only
	SlowQueryThresh time.Duration
	DBSystem        string
	TracerProvider  trace.TracerProvider // nil uses the global provider
}

// DBTracingConfigFrom derives the plugin config for the given driver
func DBTracingConfigFrom(cfg config.TelemetryConfig, driver string) DBTracingConfig {
	system := "postgresql"
	if driver == "sqlite" {
		system = "sqlite"
	}
	return DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
		DBSystem:        system,
	}
}

// DBTracingPlugin registers otelgorm plus a callback that annotates the
// statement span with row counts, errors and slow-query events
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs the plugin on db. It is a no-op when disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerCallbacks brackets each gorm operation. The after hook runs before
// otelgorm ends its span so the attributes land on the statement span.
func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	for _, op := range []string{"create", "query", "update", "delete", "row", "raw"} {
		var before, after interface {
			Register(name string, fn func(*gorm.DB)) error
		}
		gormName := "gorm:" + op
		switch op {
		case "create":
			before, after = cb.Create().Before(gormName), cb.Create().After(gormName).Before("otel:after:"+op)
		case "query":
			before, after = cb.Query().Before(gormName), cb.Query().After(gormName).Before("otel:after:"+op)
		case "update":
			before, after = cb.Update().Before(gormName), cb.Update().After(gormName).Before("otel:after:"+op)
		case "delete":
			before, after = cb.Delete().Before(gormName), cb.Delete().After(gormName).Before("otel:after:"+op)
		case "row":
			before, after = cb.Row().Before(gormName), cb.Row().After(gormName).Before("otel:after:"+op)
		case "raw":
			before, after = cb.Raw().Before(gormName), cb.Raw().After(gormName).Before("otel:after:"+op)
		}
		if err := before.Register("otel_timing:before_"+op, markStart); err != nil {
			return err
		}
		if err := after.Register("otel_timing:after_"+op, p.annotate); err != nil {
			return err
		}
	}
	return nil
}

type contextKey string

const queryStartKey contextKey = "otel_query_start"

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey, time.Now())
	}
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
