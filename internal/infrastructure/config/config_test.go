package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"CHATMETER_APP_NAME":                     os.Getenv("CHATMETER_APP_NAME"),
		"CHATMETER_APP_ENV":                      os.Getenv("CHATMETER_APP_ENV"),
		"CHATMETER_APP_PORT":                     os.Getenv("CHATMETER_APP_PORT"),
		"CHATMETER_DATABASE_HOST":                os.Getenv("CHATMETER_DATABASE_HOST"),
		"CHATMETER_DATABASE_PORT":                os.Getenv("CHATMETER_DATABASE_PORT"),
		"CHATMETER_DATABASE_USER":                os.Getenv("CHATMETER_DATABASE_USER"),
		"CHATMETER_DATABASE_PASSWORD":            os.Getenv("CHATMETER_DATABASE_PASSWORD"),
		"CHATMETER_DATABASE_DBNAME":              os.Getenv("CHATMETER_DATABASE_DBNAME"),
		"CHATMETER_DATABASE_SSLMODE":             os.Getenv("CHATMETER_DATABASE_SSLMODE"),
		"CHATMETER_DATABASE_MAX_OPEN_CONNS":      os.Getenv("CHATMETER_DATABASE_MAX_OPEN_CONNS"),
		"CHATMETER_DATABASE_MAX_IDLE_CONNS":      os.Getenv("CHATMETER_DATABASE_MAX_IDLE_CONNS"),
		"CHATMETER_BILLING_SCHEDULER_ENABLED":    os.Getenv("CHATMETER_BILLING_SCHEDULER_ENABLED"),
		"CHATMETER_BILLING_RUN_INTERVAL":         os.Getenv("CHATMETER_BILLING_RUN_INTERVAL"),
		"CHATMETER_BILLING_RENEWAL_SUCCESS_RATE": os.Getenv("CHATMETER_BILLING_RENEWAL_SUCCESS_RATE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "chatmeter-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "chatmeter", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, time.Hour, cfg.Billing.RunInterval)
		assert.Equal(t, 0.8, cfg.Billing.RenewalSuccessRate)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("loads values from environment variables with CHATMETER prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("CHATMETER_APP_NAME", "test-app")
		os.Setenv("CHATMETER_APP_ENV", "testing")
		os.Setenv("CHATMETER_APP_PORT", "9000")
		os.Setenv("CHATMETER_DATABASE_HOST", "testdb.local")
		os.Setenv("CHATMETER_DATABASE_PORT", "5433")
		os.Setenv("CHATMETER_DATABASE_USER", "testuser")
		os.Setenv("CHATMETER_DATABASE_PASSWORD", "testpass")
		os.Setenv("CHATMETER_DATABASE_DBNAME", "testdb")
		os.Setenv("CHATMETER_DATABASE_SSLMODE", "require")
		os.Setenv("CHATMETER_BILLING_RUN_INTERVAL", "10m")
		os.Setenv("CHATMETER_BILLING_RENEWAL_SUCCESS_RATE", "0.5")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 10*time.Minute, cfg.Billing.RunInterval)
		assert.Equal(t, 0.5, cfg.Billing.RenewalSuccessRate)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("CHATMETER_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("CHATMETER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("CHATMETER_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates renewal success rate range", func(t *testing.T) {
		clearEnv()
		os.Setenv("CHATMETER_BILLING_RENEWAL_SUCCESS_RATE", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "renewal_success_rate")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"CHATMETER_APP_ENV":                 os.Getenv("CHATMETER_APP_ENV"),
		"CHATMETER_DATABASE_PASSWORD":       os.Getenv("CHATMETER_DATABASE_PASSWORD"),
		"CHATMETER_DATABASE_SSLMODE":        os.Getenv("CHATMETER_DATABASE_SSLMODE"),
		"CHATMETER_HTTP_CORS_ALLOW_ORIGINS": os.Getenv("CHATMETER_HTTP_CORS_ALLOW_ORIGINS"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("CHATMETER_APP_ENV", "production")
		os.Setenv("CHATMETER_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("CHATMETER_APP_ENV", "production")
		os.Setenv("CHATMETER_DATABASE_PASSWORD", "secure-password")
		os.Setenv("CHATMETER_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects wildcard CORS origin in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("CHATMETER_APP_ENV", "production")
		os.Setenv("CHATMETER_DATABASE_PASSWORD", "secure-password")
		os.Setenv("CHATMETER_DATABASE_SSLMODE", "require")
		os.Setenv("CHATMETER_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins cannot be '*' in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		os.Setenv("CHATMETER_APP_ENV", "production")
		os.Setenv("CHATMETER_DATABASE_PASSWORD", "secure-password")
		os.Setenv("CHATMETER_DATABASE_SSLMODE", "require")

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
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}
