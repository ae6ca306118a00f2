package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "PORT", "DATA_SOURCE", "DB_DRIVER", "DB_PORT", "CACHE_SNAPSHOT_TTL",
		"MOCK_USERS", "PIPELINE_COMPLETED_STATUSES", "PIPELINE_KNOWN_STATUSES", "CLASSIFIER_URL", "EXPORT_RETENTION")

	cfg := Load()

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, SourceMock, cfg.Source.Kind)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SnapshotTTL)
	assert.Equal(t, 18, cfg.Mock.Users)
	assert.Equal(t, []string{"CONCLUIDA", "COMPLETED", "CONFIRMED"}, cfg.Pipeline.CompletedStatuses)
	assert.Nil(t, cfg.Pipeline.KnownStatuses)
	assert.Empty(t, cfg.Classifier.URL)
	assert.Equal(t, 24*time.Hour, cfg.Export.Retention)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t, "DB_PORT")
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_SOURCE", "DB")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("MOCK_SEED", "7")
	t.Setenv("PIPELINE_KNOWN_STATUSES", " ABERTA, CONCLUIDA ,,")
	t.Setenv("WORKER_SNAPSHOT_INTERVAL", "2m")
	t.Setenv("EXPORT_RETENTION", "90m")

	cfg := Load()

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, SourceDB, cfg.Source.Kind)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "3306", cfg.DB.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, int64(7), cfg.Mock.Seed)
	assert.Equal(t, []string{"ABERTA", "CONCLUIDA"}, cfg.Pipeline.KnownStatuses)
	assert.Equal(t, 2*time.Minute, cfg.Workers.SnapshotInterval)
	assert.Equal(t, 90*time.Minute, cfg.Export.Retention)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "many")
	t.Setenv("DEBUG", "sometimes")
	t.Setenv("CACHE_SNAPSHOT_TTL", "soon")
	t.Setenv("PIPELINE_COMPLETED_STATUSES", " , ")

	cfg := Load()

	assert.Equal(t, 10, cfg.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.App.Debug)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SnapshotTTL)
	assert.Equal(t, []string{"CONCLUIDA", "COMPLETED", "CONFIRMED"}, cfg.Pipeline.CompletedStatuses)
}
