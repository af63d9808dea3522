package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fulfillment", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 200, cfg.Fulfillment.PendingOrderLimit)
		assert.Equal(t, 4, cfg.Fulfillment.MapConcurrency)
		assert.Equal(t, 100, cfg.Fulfillment.MinRemainingUsage)
		assert.Equal(t, "local", cfg.Storage.Backend)
		assert.Equal(t, "2006-01-02", cfg.TimeImport.DateLayout)
		assert.Equal(t, "summaries/", cfg.TimeImport.SummaryPrefix)
		assert.Equal(t, 15*time.Minute, cfg.Scheduler.BatchInterval)
		assert.Equal(t, 24*time.Hour, cfg.Event.IdempotencyTTL)
		assert.Empty(t, cfg.Redis.Host)
	})

	t.Run("loads values from environment variables with FULFILL prefix", func(t *testing.T) {
		t.Setenv("FULFILL_APP_NAME", "test-app")
		t.Setenv("FULFILL_DATABASE_HOST", "testdb.local")
		t.Setenv("FULFILL_DATABASE_PORT", "5433")
		t.Setenv("FULFILL_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("FULFILL_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("FULFILL_FULFILLMENT_INVENTORY_ACCOUNT_ID", "1200")
		t.Setenv("FULFILL_FULFILLMENT_MAP_CONCURRENCY", "8")
		t.Setenv("FULFILL_FULFILLMENT_SHIPMENT_MEMO_PREFIX", "Shipment ")
		t.Setenv("FULFILL_SCHEDULER_BATCH_INTERVAL", "2m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "1200", cfg.Fulfillment.InventoryAccountID)
		assert.Equal(t, 8, cfg.Fulfillment.MapConcurrency)
		assert.Equal(t, "Shipment ", cfg.Fulfillment.ShipmentMemoPrefix)
		assert.Equal(t, 2*time.Minute, cfg.Scheduler.BatchInterval)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("FULFILL_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("FULFILL_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		t.Setenv("FULFILL_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("s3 backend requires a bucket", func(t *testing.T) {
		t.Setenv("FULFILL_STORAGE_BACKEND", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")

		t.Setenv("FULFILL_STORAGE_BUCKET", "erp-files")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "erp-files", cfg.Storage.Bucket)
	})

	t.Run("enabled mail needs host sender and recipients", func(t *testing.T) {
		t.Setenv("FULFILL_MAIL_ENABLED", "true")
		t.Setenv("FULFILL_MAIL_HOST", "smtp.local")
		t.Setenv("FULFILL_MAIL_FROM", "erp@example.com")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mail.recipients")

		t.Setenv("FULFILL_MAIL_RECIPIENTS", "ops@example.com")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"ops@example.com"}, cfg.Mail.Recipients)
		assert.Equal(t, "opportunistic", cfg.Mail.TLSPolicy)
		assert.Equal(t, 30*time.Second, cfg.Mail.Timeout)

		t.Setenv("FULFILL_MAIL_TLS_POLICY", "sometimes")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mail.tls_policy")
	})

	t.Run("profiling needs a server address", func(t *testing.T) {
		t.Setenv("FULFILL_TELEMETRY_PROFILING_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.profiling_address")

		t.Setenv("FULFILL_TELEMETRY_PROFILING_ADDRESS", "http://pyroscope:4040")
		t.Setenv("FULFILL_TELEMETRY_LOGS_ENABLED", "true")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.ProfilingEnabled)
		assert.True(t, cfg.Telemetry.LogsEnabled)
		assert.Equal(t, "http://pyroscope:4040", cfg.Telemetry.ProfilingAddress)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("FULFILL_APP_ENV", "production")
		t.Setenv("FULFILL_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("FULFILL_DATABASE_PASSWORD", "secure-password")
		t.Setenv("FULFILL_DATABASE_SSLMODE", "require")
	}

	t.Run("requires long jwt.secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FULFILL_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FULFILL_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FULFILL_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("sqlite skips postgres checks", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FULFILL_DATABASE_DRIVER", "sqlite")
		t.Setenv("FULFILL_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.NoError(t, err)
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "user", Password: "pass@word#123", DBName: "db", SSLMode: "disable"}
		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
