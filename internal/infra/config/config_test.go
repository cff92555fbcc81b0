package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 168*time.Hour, cfg.IdempotencyTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestFromEnvParsesValues(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/deskrent")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("S3_USE_SSL", "yes")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, "minio:9000", cfg.S3PublicEndpoint)
}

func TestFromEnvRejectsInvalidSetups(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without dsn": {"STORAGE_DRIVER": "postgres"},
		"mongo without uri":    {"STORAGE_DRIVER": "mongo"},
		"unknown driver":       {"STORAGE_DRIVER": "sqlite"},
		"prod without secret":  {"APP_ENV": "prod"},
		"bad duration":         {"JWT_TTL": "soon"},
		"bad backoff":          {"RETRY_BACKOFF": "1s,later"},
		"bad level":            {"LOG_LEVEL": "loud"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"APP_ENV", "POSTGRES_DSN", "MONGO_URI", "JWT_SECRET"} {
				t.Setenv(k, "")
			}
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9999\nAPP_ENV=test\n"), 0o600))
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("APP_ENV", "")
	os.Unsetenv("HTTP_ADDR")
	os.Unsetenv("APP_ENV")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
