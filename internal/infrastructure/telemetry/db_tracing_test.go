package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTracedDB(t *testing.T, rec *tracetest.SpanRecorder, enabled bool) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	cfg := DBTracingConfig{Enabled: enabled, DBSystem: "sqlite", TracerProvider: tp}
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))
	return db
}

func TestDBTracingConfigFrom(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: true, DBTraceEnabled: true, DBSlowQueryThresh: time.Second}

	pg := DBTracingConfigFrom(cfg, "postgres")
	assert.True(t, pg.Enabled)
	assert.Equal(t, "postgresql", pg.DBSystem)
	assert.Equal(t, time.Second, pg.SlowQueryThresh)

	assert.Equal(t, "sqlite", DBTracingConfigFrom(cfg, "sqlite").DBSystem)

	cfg.Enabled = false
	assert.False(t, DBTracingConfigFrom(cfg, "postgres").Enabled)
}

func TestNewDBTracingPlugin_DefaultThreshold(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{}, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
}

func TestDBTracing_Disabled(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	db := setupTracedDB(t, rec, false)

	require.NoError(t, db.Create(&tracedRow{Name: "a"}).Error)
	assert.Empty(t, rec.Ended())
}

func TestDBTracing_RecordsStatements(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	db := setupTracedDB(t, rec, true)
	ctx := context.Background()

	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	assert.Len(t, rows, 1)

	assert.GreaterOrEqual(t, len(rec.Ended()), 2)
}

func TestDBTracing_MarksErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	db := setupTracedDB(t, rec, true)

	err := db.WithContext(context.Background()).Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)

	ended := rec.Ended()
	require.NotEmpty(t, ended)
	assert.Equal(t, codes.Error, ended[len(ended)-1].Status().Code)
}
